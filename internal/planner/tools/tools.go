package tools

import (
	"encoding/json"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/tripflow-core/server/internal/planner/gateway"
	"github.com/tripflow-core/server/internal/planner/model"
)

// Tool names as the generator's task decomposition refers to them.
const (
	ToolTrainQuery = "train_query"
	ToolHotelQuery = "hotel_query"
	ToolRouteQuery = "route_query"
)

// RegisterAll wires the three travel tools into the registry with
// their parameter schemas, timeouts and date declarations.
func RegisterAll(r *gateway.Registry, cfg model.ToolsConfig, now func() time.Time) error {
	if now == nil {
		now = time.Now
	}
	stationCache := cache.New(time.Duration(cfg.StationCacheTTL)*time.Second, 10*time.Minute)

	if err := r.Register(ToolTrainQuery, gateway.Registration{
		Tool:    NewTrainQueryTool(stationCache, now),
		Schema:  trainParamsSchema,
		Timeout: time.Duration(cfg.TrainTimeout) * time.Second,
		Dates:   model.DateSpec{Fields: []string{"date"}},
	}); err != nil {
		return err
	}

	if err := r.Register(ToolHotelQuery, gateway.Registration{
		Tool:    NewHotelQueryTool(now),
		Schema:  hotelParamsSchema,
		Timeout: time.Duration(cfg.HotelTimeout) * time.Second,
		Dates: model.DateSpec{
			Fields: []string{"check_in", "check_out"},
			Ranges: [][2]string{{"check_in", "check_out"}},
		},
	}); err != nil {
		return err
	}

	return r.Register(ToolRouteQuery, gateway.Registration{
		Tool:    NewRouteQueryTool(),
		Schema:  routeParamsSchema,
		Timeout: time.Duration(cfg.RouteTimeout) * time.Second,
	})
}

func okEnvelope(v any) (*model.ToolEnvelope, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &model.ToolEnvelope{Status: "ok", Data: json.RawMessage(b)}, nil
}

func errEnvelope(kind model.ErrorKind, message string) *model.ToolEnvelope {
	return &model.ToolEnvelope{Status: "error", Kind: kind, Message: message}
}
