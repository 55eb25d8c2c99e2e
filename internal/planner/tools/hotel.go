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

	"github.com/tripflow-core/server/internal/planner/model"
)

const hotelParamsSchema = `{
	"type": "object",
	"properties": {
		"city":      {"type": "string", "minLength": 1},
		"check_in":  {"type": "string", "minLength": 1},
		"check_out": {"type": "string", "minLength": 1},
		"guests":    {"type": "integer", "minimum": 1},
		"tier":      {"type": "string"}
	},
	"required": ["city", "check_in", "check_out"],
	"additionalProperties": true
}`

type HotelQueryInput struct {
	City     string `json:"city"`
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
	Guests   int    `json:"guests,omitempty"`
	Tier     string `json:"tier,omitempty"`
}

type HotelOption struct {
	Name         string  `json:"name"`
	Tier         string  `json:"tier"`
	Rating       float64 `json:"rating"`
	PricePerNite int     `json:"price_per_night"`
	Distance     string  `json:"distance_to_center"`
}

type hotelQueryResult struct {
	City     string        `json:"city"`
	CheckIn  string        `json:"check_in"`
	CheckOut string        `json:"check_out"`
	Nights   int           `json:"nights"`
	Hotels   []HotelOption `json:"hotels"`
}

// NewHotelQueryTool returns the mock hotel availability lookup.
func NewHotelQueryTool(now func() time.Time) tool.InvokableTool {
	return utils.NewTool(&schema.ToolInfo{
		Name: ToolHotelQuery,
		Desc: "Query hotel availability in a city for a check-in/check-out date range.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"city": {
				Type:     schema.String,
				Desc:     "city to stay in",
				Required: true,
			},
			"check_in": {
				Type:     schema.String,
				Desc:     "check-in date in YYYY-MM-DD format",
				Required: true,
			},
			"check_out": {
				Type:     schema.String,
				Desc:     "check-out date in YYYY-MM-DD format",
				Required: true,
			},
			"guests": {
				Type: schema.Integer,
				Desc: "number of guests",
			},
			"tier": {
				Type: schema.String,
				Desc: "preferred hotel tier: budget, comfort or luxury",
			},
		}),
	}, func(ctx context.Context, in *HotelQueryInput) (*model.ToolEnvelope, error) {
		return queryHotels(now, in)
	})
}

func queryHotels(now func() time.Time, in *HotelQueryInput) (*model.ToolEnvelope, error) {
	checkIn, err := time.Parse(model.DateLayout, in.CheckIn)
	if err != nil {
		return errEnvelope(model.ErrKindBadParameters,
			fmt.Sprintf("check_in %q is not in YYYY-MM-DD format", in.CheckIn)), nil
	}
	checkOut, err := time.Parse(model.DateLayout, in.CheckOut)
	if err != nil {
		return errEnvelope(model.ErrKindBadParameters,
			fmt.Sprintf("check_out %q is not in YYYY-MM-DD format", in.CheckOut)), nil
	}
	if in.CheckIn < now().Format(model.DateLayout) {
		return errEnvelope(model.ErrKindBadParameters,
			fmt.Sprintf("check_in date %s cannot be earlier than today", in.CheckIn)), nil
	}
	if !checkOut.After(checkIn) {
		return errEnvelope(model.ErrKindBadParameters,
			fmt.Sprintf("check_out %s must be later than check_in %s", in.CheckOut, in.CheckIn)), nil
	}

	nights := int(checkOut.Sub(checkIn).Hours() / 24)
	return okEnvelope(hotelQueryResult{
		City:     in.City,
		CheckIn:  in.CheckIn,
		CheckOut: in.CheckOut,
		Nights:   nights,
		Hotels:   mockHotels(in.City, in.Tier),
	})
}

var hotelTiers = []string{"budget", "comfort", "luxury"}

func titleCase(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func mockHotels(city, tier string) []HotelOption {
	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(city)))
	seed := int(h.Sum32())

	tier = strings.ToLower(strings.TrimSpace(tier))
	hotels := make([]HotelOption, 0, 3)
	for i, t := range hotelTiers {
		if tier != "" && tier != t {
			continue
		}
		hotels = append(hotels, HotelOption{
			Name:         fmt.Sprintf("%s %s Hotel", titleCase(city), titleCase(t)),
			Tier:         t,
			Rating:       3.6 + float64((seed+i*13)%14)/10,
			PricePerNite: 180 + i*320 + (seed+i*47)%160,
			Distance:     fmt.Sprintf("%.1fkm", 0.5+float64((seed+i*29)%60)/10),
		})
	}
	return hotels
}
