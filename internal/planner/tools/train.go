package tools

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
	"github.com/patrickmn/go-cache"

	"github.com/tripflow-core/server/internal/planner/model"
)

const trainParamsSchema = `{
	"type": "object",
	"properties": {
		"origin":      {"type": "string", "minLength": 1},
		"destination": {"type": "string", "minLength": 1},
		"date":        {"type": "string", "minLength": 1}
	},
	"required": ["origin", "destination", "date"],
	"additionalProperties": true
}`

type TrainQueryInput struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Date        string `json:"date"`
}

type TrainOption struct {
	TrainNo   string `json:"train_no"`
	Origin    string `json:"origin"`
	Dest      string `json:"destination"`
	Depart    string `json:"depart"`
	Arrive    string `json:"arrive"`
	Duration  string `json:"duration"`
	SeatClass string `json:"seat_class"`
	Price     int    `json:"price"`
}

type trainQueryResult struct {
	Date   string        `json:"date"`
	Trains []TrainOption `json:"trains"`
}

// Station codes of the cities the mock timetable covers.
var stationCodes = map[string]string{
	"beijing":   "BJP",
	"shanghai":  "SHH",
	"guangzhou": "GZQ",
	"shenzhen":  "SZQ",
	"chengdu":   "CDW",
	"hangzhou":  "HZH",
	"nanjing":   "NJH",
	"wuhan":     "WHN",
	"xian":      "XAY",
	"xi'an":     "XAY",
	"chongqing": "CQW",
}

// NewTrainQueryTool returns the mock timetable lookup. Station code
// resolution goes through codes so repeated queries for the same city
// skip the lookup.
func NewTrainQueryTool(codes *cache.Cache, now func() time.Time) tool.InvokableTool {
	return utils.NewTool(&schema.ToolInfo{
		Name: ToolTrainQuery,
		Desc: "Query train tickets between two cities on a given date.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"origin": {
				Type:     schema.String,
				Desc:     "departure city name",
				Required: true,
			},
			"destination": {
				Type:     schema.String,
				Desc:     "arrival city name",
				Required: true,
			},
			"date": {
				Type:     schema.String,
				Desc:     "travel date in YYYY-MM-DD format",
				Required: true,
			},
		}),
	}, func(ctx context.Context, in *TrainQueryInput) (*model.ToolEnvelope, error) {
		return queryTrains(codes, now, in)
	})
}

func queryTrains(codes *cache.Cache, now func() time.Time, in *TrainQueryInput) (*model.ToolEnvelope, error) {
	if _, err := time.Parse(model.DateLayout, in.Date); err != nil {
		return errEnvelope(model.ErrKindBadParameters,
			fmt.Sprintf("date %q is not in YYYY-MM-DD format", in.Date)), nil
	}
	if in.Date < now().Format(model.DateLayout) {
		return errEnvelope(model.ErrKindBadParameters,
			fmt.Sprintf("departure date %s cannot be earlier than today", in.Date)), nil
	}

	from, ok := resolveStation(codes, in.Origin)
	if !ok {
		return errEnvelope(model.ErrKindRemoteFailure,
			fmt.Sprintf("no station code found for city %q", in.Origin)), nil
	}
	to, ok := resolveStation(codes, in.Destination)
	if !ok {
		return errEnvelope(model.ErrKindRemoteFailure,
			fmt.Sprintf("no station code found for city %q", in.Destination)), nil
	}

	return okEnvelope(trainQueryResult{
		Date:   in.Date,
		Trains: mockTrains(from, to, in.Origin, in.Destination),
	})
}

func resolveStation(codes *cache.Cache, city string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(city))
	if key == "" {
		return "", false
	}
	if v, found := codes.Get(key); found {
		return v.(string), true
	}
	code, ok := stationCodes[key]
	if !ok {
		return "", false
	}
	codes.SetDefault(key, code)
	return code, true
}

func mockTrains(from, to, origin, dest string) []TrainOption {
	h := fnv.New32a()
	h.Write([]byte(from + to))
	seed := int(h.Sum32())

	trains := make([]TrainOption, 0, 3)
	for i := 0; i < 3; i++ {
		departHour := 7 + (seed+i*4)%12
		durHours := 4 + (seed+i)%6
		trains = append(trains, TrainOption{
			TrainNo:   fmt.Sprintf("G%d", 100+(seed+i*17)%800),
			Origin:    origin,
			Dest:      dest,
			Depart:    fmt.Sprintf("%02d:%02d", departHour, (seed*7+i*15)%60),
			Arrive:    fmt.Sprintf("%02d:%02d", (departHour+durHours)%24, (seed*11+i*15)%60),
			Duration:  fmt.Sprintf("%dh%02dm", durHours, (seed*3)%60),
			SeatClass: []string{"second", "first", "business"}[i%3],
			Price:     280 + (seed+i*120)%620,
		})
	}
	return trains
}
