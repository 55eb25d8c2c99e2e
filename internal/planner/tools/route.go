package tools

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/tripflow-core/server/internal/planner/model"
)

const routeParamsSchema = `{
	"type": "object",
	"properties": {
		"origin":      {"type": "string", "minLength": 1},
		"destination": {"type": "string", "minLength": 1},
		"mode":        {"type": "string"}
	},
	"required": ["origin", "destination"],
	"additionalProperties": true
}`

type RouteQueryInput struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Mode        string `json:"mode,omitempty"`
}

type routeQueryResult struct {
	Origin     string `json:"origin"`
	Dest       string `json:"destination"`
	Mode       string `json:"mode"`
	DistanceKM int    `json:"distance_km"`
	Duration   string `json:"duration"`
	Summary    string `json:"summary"`
}

// Intercity distances the mock routing table knows about, in km.
var knownDistances = map[string]int{
	"beijing|shanghai":   1318,
	"beijing|guangzhou":  2294,
	"beijing|xian":       1216,
	"shanghai|hangzhou":  175,
	"shanghai|nanjing":   295,
	"guangzhou|shenzhen": 140,
	"chengdu|chongqing":  308,
}

// NewRouteQueryTool returns the mock intercity routing lookup.
func NewRouteQueryTool() tool.InvokableTool {
	return utils.NewTool(&schema.ToolInfo{
		Name: ToolRouteQuery,
		Desc: "Query the distance and travel duration between two cities.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"origin": {
				Type:     schema.String,
				Desc:     "starting city name",
				Required: true,
			},
			"destination": {
				Type:     schema.String,
				Desc:     "ending city name",
				Required: true,
			},
			"mode": {
				Type: schema.String,
				Desc: "travel mode: rail, driving or transit",
			},
		}),
	}, func(ctx context.Context, in *RouteQueryInput) (*model.ToolEnvelope, error) {
		return queryRoute(in)
	})
}

func queryRoute(in *RouteQueryInput) (*model.ToolEnvelope, error) {
	origin := strings.ToLower(strings.TrimSpace(in.Origin))
	dest := strings.ToLower(strings.TrimSpace(in.Destination))
	if origin == dest {
		return errEnvelope(model.ErrKindBadParameters,
			"origin and destination must be different cities"), nil
	}

	mode := strings.ToLower(strings.TrimSpace(in.Mode))
	if mode == "" {
		mode = "rail"
	}

	km := lookupDistance(origin, dest)
	speed := map[string]int{"rail": 250, "driving": 90, "transit": 60}[mode]
	if speed == 0 {
		speed = 90
	}
	minutes := km * 60 / speed

	return okEnvelope(routeQueryResult{
		Origin:     in.Origin,
		Dest:       in.Destination,
		Mode:       mode,
		DistanceKM: km,
		Duration:   fmt.Sprintf("%dh%02dm", minutes/60, minutes%60),
		Summary:    fmt.Sprintf("%s to %s, about %dkm by %s", in.Origin, in.Destination, km, mode),
	})
}

func lookupDistance(origin, dest string) int {
	if km, ok := knownDistances[origin+"|"+dest]; ok {
		return km
	}
	if km, ok := knownDistances[dest+"|"+origin]; ok {
		return km
	}
	h := fnv.New32a()
	h.Write([]byte(origin + "|" + dest))
	return 200 + int(h.Sum32())%1800
}
