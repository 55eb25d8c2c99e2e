package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/tripflow-core/server/internal/core"
	"github.com/tripflow-core/server/internal/planner/gateway"
	"github.com/tripflow-core/server/internal/planner/machine"
	"github.com/tripflow-core/server/internal/planner/model"
	"github.com/tripflow-core/server/internal/planner/repo"
	"github.com/tripflow-core/server/internal/planner/roles"
	"github.com/tripflow-core/server/internal/planner/tools"
	logx "github.com/tripflow-core/server/pkg/logger"
	pkgredis "github.com/tripflow-core/server/pkg/redis"
)

// AppConfig defines all configurable parameters for the planner demo,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// Infrastructure
	Redis pkgredis.Config

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Planner configs
	Generator model.GeneratorModelConfig
	Validator model.ValidatorModelConfig
	Planner   model.PlannerConfig
	Tools     model.ToolsConfig
}

func main() {
	fmt.Println("Trip planner conversation demo...")
	ctx := context.Background()

	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	var envCfg AppConfig
	if err := envconfig.Process("", &envCfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}

	logx.Init(logx.LoggerOpts{Environment: core.ParseEnvironment(envCfg.Environment)})

	rdb, err := envCfg.Redis.New()
	if err != nil {
		log.Fatalf("Failed to initialise Redis client: %v", err)
	}
	defer rdb.Close()

	fmt.Println("Connected to Redis successfully")

	sessionTTL, err := time.ParseDuration(envCfg.Planner.SessionTTL)
	if err != nil {
		log.Fatalf("Invalid PLANNER_SESSION_TTL '%s': %v", envCfg.Planner.SessionTTL, err)
	}
	turnBudget, err := time.ParseDuration(envCfg.Planner.TurnBudget)
	if err != nil {
		log.Fatalf("Invalid PLANNER_TURN_BUDGET '%s': %v", envCfg.Planner.TurnBudget, err)
	}

	// ====================================================
	// Role backends: one warm generator, one cold validator.
	models, err := roles.NewChatModels(ctx, roles.ChatModelConfig{
		APIKey:    envCfg.APIKey,
		BaseURL:   envCfg.BaseURL,
		Generator: &envCfg.Generator,
		Validator: &envCfg.Validator,
	})
	if err != nil {
		log.Fatalf("Failed to build chat models: %v", err)
	}
	generator := roles.NewGenerator(
		roles.NewCompleter(models.Generator, envCfg.Generator.Timeout), envCfg.Planner)
	validator := roles.NewValidator(
		roles.NewCompleter(models.Validator, envCfg.Validator.Timeout), envCfg.Planner)

	// Tool registry and gateway.
	registry := gateway.NewRegistry()
	if err := tools.RegisterAll(registry, envCfg.Tools, nil); err != nil {
		log.Fatalf("Failed to register tools: %v", err)
	}

	m := machine.New(
		generator,
		validator,
		gateway.New(registry),
		repo.NewRedisSessionRepository(rdb, sessionTTL),
		registry.DateSpecs(),
		machine.Config{
			TurnBudget:      turnBudget,
			TaskMaxAttempts: envCfg.Planner.TaskMaxAttempts,
			HistoryMaxTurns: envCfg.Planner.HistoryMaxTurns,
		},
	)

	testTurns := []struct {
		description string
		message     string
	}{
		{
			description: "Vague opening, critical slots missing",
			message:     "Hi, I want to take a trip to Shanghai soon",
		},
		{
			description: "Filling in departure city and date",
			message:     "I'm leaving from Beijing on 2026-04-01, two of us, back on 2026-04-05",
		},
		{
			description: "Preference refinement",
			message:     "We'd prefer high-speed rail and a comfortable hotel near the center",
		},
	}

	identity := "demo-traveler-001"

	for i, turn := range testTurns {
		fmt.Printf("\nTurn %d: %s\n", i+1, turn.description)
		fmt.Printf("User: %q\n", turn.message)
		fmt.Println("Processing...")

		result, err := m.ProcessTurn(ctx, identity, turn.message)
		if err != nil {
			log.Fatalf("Failed to process turn %d: %v", i+1, err)
		}

		fmt.Printf("Planner [%s]: %s\n", result.Phase, result.Response)
		if result.Done {
			fmt.Println("Plan complete.")
			break
		}

		time.Sleep(500 * time.Millisecond)
	}

	if snap, err := m.Inspect(ctx, identity); err == nil {
		fmt.Printf("\nFinal session state: phase=%s turns=%d slots=%d\n",
			snap.Phase, snap.Turns, len(snap.Slots))
	}

	fmt.Println("Demo finished.")
}
