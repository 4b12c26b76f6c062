// Command planwright is the CLI front end. Commands are served by the
// daemon when its socket is up; generate, validate and run fall back to
// running inline so the tool works without a daemon.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/planwright/planwright/internal/config"
	"github.com/planwright/planwright/internal/daemon"
	"github.com/planwright/planwright/internal/engine"
	"github.com/planwright/planwright/internal/generate"
	"github.com/planwright/planwright/internal/logger"
	"github.com/planwright/planwright/internal/plan"
	"github.com/planwright/planwright/internal/proposer"
	"github.com/planwright/planwright/internal/rules"
	"github.com/planwright/planwright/internal/scoring"
	"github.com/planwright/planwright/pkg/protocol"
)

const usage = `Usage: planwright <command> [flags]

Commands:
  generate   produce deterministic layouts for a brief
  validate   score a layout JSON file against the rule catalog
  run        run the full generate-validate-correct loop
  runs       list persisted runs
  status     show daemon status
  stop       stop the daemon

Run 'planwright <command> -h' for command flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cmd, args := os.Args[1], os.Args[2:]

	var err error
	switch cmd {
	case "generate":
		err = cmdGenerate(args)
	case "validate":
		err = cmdValidate(args)
	case "run":
		err = cmdRun(args)
	case "runs":
		err = cmdRuns(args)
	case "status":
		err = cmdStatus(args)
	case "stop":
		err = cmdStop(args)
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// commonFlags adds the flags shared by every command.
func commonFlags(fs *flag.FlagSet) (configPath *string, noDaemon *bool) {
	configPath = fs.String("config", "", "path to config file")
	noDaemon = fs.Bool("no-daemon", false, "run inline, do not contact the daemon")
	return
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Init(logger.Config{Level: logger.ParseLevel(cfg.LogLevel), Output: os.Stderr})
	return cfg, nil
}

// reqFlags binds the brief fields onto a flag set.
func reqFlags(fs *flag.FlagSet) (*plan.Requirements, *string) {
	req := &plan.Requirements{}
	reqFile := fs.String("req", "", "read the brief from a JSON file instead of flags")
	fs.Float64Var(&req.LandWidth, "land-width", 14, "land width in metres")
	fs.Float64Var(&req.LandDepth, "land-depth", 25, "land depth in metres")
	fs.IntVar(&req.Bedrooms, "bedrooms", 3, "number of bedrooms")
	fs.Float64Var(&req.Bathrooms, "bathrooms", 2, "number of bathrooms (0.5 steps)")
	fs.IntVar(&req.GarageSpaces, "garage", 2, "garage car spaces")
	fs.IntVar(&req.Storeys, "storeys", 1, "number of storeys (1 or 2)")
	fs.BoolVar(&req.OpenPlan, "open-plan", true, "open-plan kitchen/living/dining")
	fs.BoolVar(&req.Alfresco, "alfresco", false, "include a rear alfresco")
	fs.BoolVar(&req.Study, "study", false, "include a study")
	fs.BoolVar(&req.Theatre, "theatre", false, "include a theatre room")
	fs.BoolVar(&req.HomeOffice, "home-office", false, "include a home office")
	return req, reqFile
}

func resolveRequirements(req *plan.Requirements, reqFile string) (*plan.Requirements, error) {
	if reqFile != "" {
		data, err := os.ReadFile(reqFile)
		if err != nil {
			return nil, fmt.Errorf("read brief: %w", err)
		}
		req = &plan.Requirements{}
		if err := json.Unmarshal(data, req); err != nil {
			return nil, fmt.Errorf("parse brief %s: %w", reqFile, err)
		}
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

// dial returns a daemon client, or nil when the daemon is unreachable
// and inline fallback should take over.
func dial(ctx context.Context, cfg *config.Config, noDaemon bool) *daemon.Client {
	if noDaemon {
		return nil
	}
	client, err := daemon.Dial(ctx, cfg.SocketPath, cfg.RequestTimeout)
	if err != nil {
		logger.Debug("daemon unreachable, running inline", "error", err)
		return nil
	}
	return client
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func cmdGenerate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	configPath, noDaemon := commonFlags(fs)
	req, reqFile := reqFlags(fs)
	variant := fs.String("variant", "", "generate only the named variant")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	req, err = resolveRequirements(req, *reqFile)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if client := dial(ctx, cfg, *noDaemon); client != nil {
		defer client.Close()
		reqJSON, _ := json.Marshal(req)
		result, err := client.Generate(ctx, &protocol.GenerateParams{
			Requirements: reqJSON,
			Variant:      *variant,
		})
		if err != nil {
			return err
		}
		return printJSON(result.Layouts)
	}

	gen := generate.New()
	var layouts []*plan.Layout
	if *variant != "" {
		for _, v := range gen.Variants() {
			if v.Name == *variant {
				layout, err := gen.GenerateVariant(req, v)
				if err != nil {
					return err
				}
				layouts = append(layouts, layout)
			}
		}
		if len(layouts) == 0 {
			return fmt.Errorf("unknown variant %q", *variant)
		}
	} else {
		layouts, err = gen.GenerateAll(req)
		if err != nil {
			return err
		}
	}
	return printJSON(layouts)
}

func cmdValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configPath, noDaemon := commonFlags(fs)
	req, reqFile := reqFlags(fs)
	layoutFile := fs.String("layout", "", "layout JSON file to validate (required)")
	fs.Parse(args)

	if *layoutFile == "" {
		return fmt.Errorf("-layout is required")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	req, err = resolveRequirements(req, *reqFile)
	if err != nil {
		return err
	}

	layoutJSON, err := os.ReadFile(*layoutFile)
	if err != nil {
		return fmt.Errorf("read layout: %w", err)
	}

	ctx := context.Background()
	if client := dial(ctx, cfg, *noDaemon); client != nil {
		defer client.Close()
		reqJSON, _ := json.Marshal(req)
		result, err := client.Validate(ctx, &protocol.ValidateParams{
			Layout:       layoutJSON,
			Requirements: reqJSON,
		})
		if err != nil {
			return err
		}
		return printJSON(json.RawMessage(result.Result))
	}

	layout, err := plan.DecodeLayout(layoutJSON)
	if err != nil {
		return err
	}
	catalog, err := rules.LoadDir(cfg.CatalogDir)
	if err != nil {
		return err
	}
	result := scoring.Score(layout, req, catalog, cfg.Engine.Scoring)
	return printJSON(result)
}

func cmdRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath, noDaemon := commonFlags(fs)
	req, reqFile := reqFlags(fs)
	persist := fs.Bool("persist", true, "persist the run when served by the daemon")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	req, err = resolveRequirements(req, *reqFile)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if client := dial(ctx, cfg, *noDaemon); client != nil {
		defer client.Close()
		reqJSON, _ := json.Marshal(req)
		result, err := client.Run(ctx, &protocol.RunParams{
			Requirements: reqJSON,
			Persist:      *persist,
		})
		if err != nil {
			return err
		}
		if result.RunID != 0 {
			fmt.Fprintf(os.Stderr, "run persisted with id %d\n", result.RunID)
		}
		return printJSON(json.RawMessage(result.Result))
	}

	catalog, err := rules.LoadDir(cfg.CatalogDir)
	if err != nil {
		return err
	}
	eng, err := engine.New(proposer.NewGeneratorProposer(), catalog, cfg.Engine)
	if err != nil {
		return err
	}
	result, err := eng.Run(ctx, req)
	if err != nil {
		return err
	}
	return printJSON(result)
}

func cmdRuns(args []string) error {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	configPath, _ := commonFlags(fs)
	limit := fs.Int("limit", 20, "number of runs to list")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	client := dial(ctx, cfg, false)
	if client == nil {
		return fmt.Errorf("daemon is not running")
	}
	defer client.Close()

	result, err := client.ListRuns(ctx, *limit)
	if err != nil {
		return err
	}
	return printJSON(result.Runs)
}

func cmdStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath, _ := commonFlags(fs)
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	client := dial(ctx, cfg, false)
	if client == nil {
		fmt.Println("daemon is not running")
		return nil
	}
	defer client.Close()

	status, err := client.Status(ctx)
	if err != nil {
		return err
	}
	return printJSON(status)
}

func cmdStop(args []string) error {
	fs := flag.NewFlagSet("stop", flag.ExitOnError)
	configPath, _ := commonFlags(fs)
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	client := dial(ctx, cfg, false)
	if client == nil {
		fmt.Println("daemon is not running")
		return nil
	}
	defer client.Close()

	if err := client.Shutdown(ctx); err != nil {
		return err
	}
	fmt.Println("daemon stopping")
	return nil
}
