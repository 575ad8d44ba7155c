package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	errx "github.com/agente-usados/server/internal/core/error"
	"github.com/agente-usados/server/internal/finance"
	"github.com/agente-usados/server/internal/leads"
	"github.com/agente-usados/server/internal/stock"
)

// toolDeps are the collaborators the declared tool set closes over.
type toolDeps struct {
	stock  *stock.Repository
	leads  *leads.Store
	engine *finance.Engine
}

func newTools(deps toolDeps) []tool.BaseTool {
	return []tool.BaseTool{
		newSearchStockTool(deps),
		newStockSummaryTool(deps),
		newCalculateCuotaTool(deps),
		newEstimatePrecioMaxTool(deps),
		newRegisterLeadTool(deps),
	}
}

// ===================================
// search_stock
// ===================================

type searchStockInput struct {
	PrecioMin          int64  `json:"precio_min,omitempty"`
	PrecioMax          int64  `json:"precio_max,omitempty"`
	AnioMin            int    `json:"anio_min,omitempty"`
	AnioMax            int    `json:"anio_max,omitempty"`
	KmMax              int64  `json:"km_max,omitempty"`
	Marca              string `json:"marca,omitempty"`
	Modelo             string `json:"modelo,omitempty"`
	Segmento           string `json:"segmento,omitempty"`
	Combustible        string `json:"combustible,omitempty"`
	Transmision        string `json:"transmision,omitempty"`
	ExcludeMarca       string `json:"exclude_marca,omitempty"`
	ExcludeModelo      string `json:"exclude_modelo,omitempty"`
	ExcludeCombustible string `json:"exclude_combustible,omitempty"`
	OrderByPrecio      string `json:"order_by_precio,omitempty"`
	Limit              int    `json:"limit,omitempty"`
}

func newSearchStockTool(deps toolDeps) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: "search_stock",
			Desc: "Busca vehículos usados. precio_min y precio_max van en PESOS CHILENOS (número completo): ej. 12 millones = 12000000. Siempre usa limit=5 y pasa el presupuesto en pesos (no en millones). Usar cuando el cliente mencione presupuesto o qué autos busca.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"precio_min": {
					Type: "number",
					Desc: "Precio mínimo en pesos. Con pie de financiamiento, usar 2 veces el pie.",
				},
				"precio_max": {
					Type: "number",
					Desc: "Precio máximo en pesos. 12 millones = 12000000, nunca 12.",
				},
				"anio_min": {Type: "number", Desc: "Año mínimo del vehículo."},
				"anio_max": {Type: "number", Desc: "Año máximo del vehículo."},
				"km_max":   {Type: "number", Desc: "Kilometraje máximo."},
				"marca":    {Type: "string", Desc: "Filtro por marca (coincidencia parcial)."},
				"modelo":   {Type: "string", Desc: "Filtro por modelo (coincidencia parcial)."},
				"segmento": {
					Type: "string",
					Desc: "Valores exactos: CityCar, Suv, Sedan, Camioneta, Furgon. 'pickup'/'camioneta' = Camioneta; 'van'/'furgón' = Furgon.",
				},
				"combustible": {
					Type: "string",
					Desc: "Valores exactos: Diesel, Gasolina, Hibrido, Electrico.",
				},
				"transmision": {
					Type: "string",
					Desc: "Valores exactos: Automatico, Mecanico.",
				},
				"exclude_marca":       {Type: "string", Desc: "Marca a excluir, ej. 'que no sea Nissan'."},
				"exclude_modelo":      {Type: "string", Desc: "Modelo a excluir."},
				"exclude_combustible": {Type: "string", Desc: "Combustible a excluir: Electrico, Diesel, Gasolina o Hibrido."},
				"order_by_precio": {
					Type: "string",
					Desc: "'desc' para opciones cercanas a un tope (por defecto), 'asc' para los más económicos.",
				},
				"limit": {Type: "number", Desc: "Máximo de resultados, usar 5."},
			}),
		},
		func(ctx context.Context, in *searchStockInput) (string, error) {
			order := stock.OrderDesc
			if strings.EqualFold(in.OrderByPrecio, "asc") {
				order = stock.OrderAsc
			}
			results, err := deps.stock.Search(ctx, stock.Filters{
				PrecioMin:          in.PrecioMin,
				PrecioMax:          in.PrecioMax,
				AnioMin:            in.AnioMin,
				AnioMax:            in.AnioMax,
				KmMax:              in.KmMax,
				Marca:              in.Marca,
				Modelo:             in.Modelo,
				Segmento:           in.Segmento,
				Combustible:        in.Combustible,
				Transmision:        in.Transmision,
				ExcludeMarca:       in.ExcludeMarca,
				ExcludeModelo:      in.ExcludeModelo,
				ExcludeCombustible: in.ExcludeCombustible,
				Order:              order,
				Limit:              in.Limit,
			})
			if err != nil {
				return "", err
			}
			if tc := turnFrom(ctx); tc != nil && len(results) > 0 {
				tc.LastShown = results
			}
			return stock.FormatList(results), nil
		},
	)
}

// ===================================
// get_stock_summary
// ===================================

type stockSummaryInput struct{}

func newStockSummaryTool(deps toolDeps) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name:        "get_stock_summary",
			Desc:        "Resumen del stock: cantidad total y rangos de precios y años. Usar cuando pregunten cuántos autos hay o qué precios manejamos.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
		},
		func(ctx context.Context, _ *stockSummaryInput) (string, error) {
			s, err := deps.stock.Summary(ctx)
			if err != nil {
				return "", err
			}
			if s.Total == 0 {
				return "El stock está vacío.", nil
			}
			return fmt.Sprintf(
				"Total de vehículos: %d\nPrecios: %s - %s\nAños: %d - %d",
				s.Total, stock.FormatPesos(s.PrecioMin), stock.FormatPesos(s.PrecioMax),
				s.AnioMin, s.AnioMax,
			), nil
		},
	)
}

// ===================================
// calculate_cuota
// ===================================

type calculateCuotaInput struct {
	PrecioLista int64 `json:"precio_lista"`
	Pie         int64 `json:"pie"`
	Plazo       int   `json:"plazo,omitempty"`
}

func newCalculateCuotaTool(deps toolDeps) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: "calculate_cuota",
			Desc: "Calcula la cuota mensual de financiamiento para un vehículo. precio_lista y pie en PESOS. plazo interno: 24, 36 o 48 (usar 36 primero). El pie se ajusta automáticamente al rango 30%-50% del precio.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"precio_lista": {Type: "number", Desc: "Precio lista del vehículo en pesos.", Required: true},
				"pie":          {Type: "number", Desc: "Pie del cliente en pesos.", Required: true},
				"plazo":        {Type: "number", Desc: "Plazo en meses: 24, 36 o 48."},
			}),
		},
		func(ctx context.Context, in *calculateCuotaInput) (string, error) {
			q, err := deps.engine.Quote(in.PrecioLista, in.Pie, in.Plazo)
			if err != nil {
				return quoteErrorText(err), nil
			}
			return FormatQuote(q), nil
		},
	)
}

// FormatQuote renders a quote the way the assistant presents it, including
// the clamping note when the down payment was adjusted.
func FormatQuote(q finance.Quote) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cuota: %s en un plazo de %d meses (pie %s, monto a financiar %s).",
		stock.FormatPesos(q.Cuota), q.Plazo,
		stock.FormatPesos(q.PieEfectivo), stock.FormatPesos(q.MontoFinanciar))
	if q.PieAjustado {
		fmt.Fprintf(&b, " Nota: para este vehículo el pie se ajustó a %s (el pie va entre 30%% y 50%% del precio).",
			stock.FormatPesos(q.PieEfectivo))
	}
	return b.String()
}

// quoteErrorText turns engine failures into guidance the model can relay.
func quoteErrorText(err error) string {
	switch errx.KindOf(err) {
	case errx.KindInputValidation:
		return "No pude calcular la cuota: el precio del vehículo no es válido. Verifica el precio e intenta de nuevo."
	case errx.KindPolicyViolation:
		return "No pude calcular la cuota con ese pie. Pide al cliente ajustar el monto del pie."
	default:
		return "No pude calcular la cuota en este momento."
	}
}

// ===================================
// estimate_precio_max_for_cuota
// ===================================

type estimatePrecioMaxInput struct {
	Pie          int64 `json:"pie"`
	CuotaDeseada int64 `json:"cuota_deseada"`
	Plazo        int   `json:"plazo,omitempty"`
}

func newEstimatePrecioMaxTool(deps toolDeps) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: "estimate_precio_max_for_cuota",
			Desc: "Estima el precio máximo de vehículo alcanzable con un pie y una cuota mensual deseada, ambos en PESOS. Usar antes de search_stock cuando el cliente da pie + cuota cómoda.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"pie":           {Type: "number", Desc: "Pie del cliente en pesos.", Required: true},
				"cuota_deseada": {Type: "number", Desc: "Cuota mensual cómoda en pesos.", Required: true},
				"plazo":         {Type: "number", Desc: "Plazo en meses: 24, 36 o 48."},
			}),
		},
		func(ctx context.Context, in *estimatePrecioMaxInput) (string, error) {
			precioMax, err := deps.engine.MaxPriceForInstallment(in.Pie, in.CuotaDeseada, in.Plazo)
			if err != nil {
				return "No pude estimar: el pie y la cuota deseada deben ser montos positivos.", nil
			}
			return fmt.Sprintf(
				"Con pie de %s y cuota de %s el precio máximo aproximado es %s. Usa ese valor como precio_max en search_stock.",
				stock.FormatPesos(in.Pie), stock.FormatPesos(in.CuotaDeseada), stock.FormatPesos(precioMax),
			), nil
		},
	)
}

// ===================================
// register_lead
// ===================================

type registerLeadInput struct {
	Nombre     string `json:"nombre"`
	RUT        string `json:"rut,omitempty"`
	Correo     string `json:"correo,omitempty"`
	PatenteVPP string `json:"patente_vehiculo_vpp,omitempty"`
	KmVPP      int64  `json:"kilometraje_vehiculo_vpp,omitempty"`
	Notas      string `json:"notas,omitempty"`
}

func newRegisterLeadTool(deps toolDeps) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: "register_lead",
			Desc: "Registra los datos del cliente para que un ejecutivo lo contacte. Usar cuando tengan nombre y (correo o RUT) y quieran agendar, comprar o ser contactados. Si es por autos nuevos o accesorios, poner en notas: 'Autos nuevos', 'Accesorios', etc. Si tiene vehículo en parte de pago (VPP), incluir patente y kilometraje.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"nombre":                   {Type: "string", Desc: "Nombre del cliente.", Required: true},
				"rut":                      {Type: "string", Desc: "RUT del cliente."},
				"correo":                   {Type: "string", Desc: "Correo electrónico del cliente."},
				"patente_vehiculo_vpp":     {Type: "string", Desc: "Patente del vehículo en parte de pago."},
				"kilometraje_vehiculo_vpp": {Type: "number", Desc: "Kilometraje del vehículo en parte de pago."},
				"notas":                    {Type: "string", Desc: "Notas: 'Autos nuevos', 'Accesorios', interés específico, etc."},
			}),
		},
		func(ctx context.Context, in *registerLeadInput) (string, error) {
			threadID := ""
			if tc := turnFrom(ctx); tc != nil {
				threadID = tc.ThreadID
			}
			res, err := deps.leads.Register(ctx, leads.Lead{
				Nombre:           in.Nombre,
				RUT:              in.RUT,
				Email:            in.Correo,
				PartePagoPatente: in.PatenteVPP,
				PartePagoKm:      in.KmVPP,
				Notas:            in.Notas,
				ThreadID:         threadID,
			})
			if err != nil {
				return "", err
			}
			if !res.OK {
				return fmt.Sprintf("Error al registrar: %s Pide al cliente que verifique los datos.", res.Message), nil
			}
			return "Lead registrado. Di al cliente: Sus datos han sido enviados a un ejecutivo de Pompeyo Carrasco Usados, quien lo contactará a la brevedad para coordinar su visita o prueba de manejo.", nil
		},
	)
}
