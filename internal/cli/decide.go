package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/probaccess/sitegate/internal/audit"
	"github.com/probaccess/sitegate/internal/config"
	"github.com/probaccess/sitegate/internal/engine"
	"github.com/probaccess/sitegate/internal/gate"
	"github.com/probaccess/sitegate/internal/guard"
	"github.com/probaccess/sitegate/internal/model"
)

var (
	decideAddress   string
	decideEmail     string
	decideID        string
	decideName      string
	decideMetadata  string
	decideTitle     string
	decideNamesFile string
	decideBanner    string
	decideEnforce   bool
	decideFormat    string
)

func init() {
	rootCmd.AddCommand(decideCmd)
	decideCmd.Flags().StringVar(&decideAddress, "address", "", "Resource address to evaluate (required)")
	decideCmd.Flags().StringVar(&decideEmail, "email", "", "Principal email")
	decideCmd.Flags().StringVar(&decideID, "id", "", "Principal opaque ID")
	decideCmd.Flags().StringVar(&decideName, "display-name", "", "Principal display name")
	decideCmd.Flags().StringVar(&decideMetadata, "metadata", "", "Declared resource description")
	decideCmd.Flags().StringVar(&decideTitle, "title", "", "Owning group title, if known")
	decideCmd.Flags().StringVar(&decideNamesFile, "names-file", "", "File of rendered display names (one per line) for the last-resort backend")
	decideCmd.Flags().StringVar(&decideBanner, "banner", "", "Rendered visibility label, if visible on the page")
	decideCmd.Flags().BoolVar(&decideEnforce, "enforce", false, "Run the verdict through the redirect guard")
	decideCmd.Flags().StringVarP(&decideFormat, "format", "f", "text", "Output format (text|json)")
	decideCmd.MarkFlagRequired("address")
}

var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Evaluate one address/principal pair",
	Long: "Runs a single evaluation through the configured pipeline and prints\n" +
		"the verdict. With --enforce the verdict also passes through the\n" +
		"redirect guard, printing the redirect it would issue.",
	RunE: runDecide,
}

func runDecide(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, cfgHash, err := config.LoadWithHash(rootConfig)
	if err != nil {
		return err
	}

	opts := gate.Options{Logger: log}
	if decideNamesFile != "" {
		opts.Names = fileNameReader{path: decideNamesFile}
	}
	if decideBanner != "" {
		opts.Banner = staticBanner(decideBanner)
	}
	g := gate.New(cfg, opts)

	req := engine.Request{
		Address:  decideAddress,
		Metadata: decideMetadata,
		Title:    decideTitle,
		Principal: model.Principal{
			ID:          decideID,
			Email:       decideEmail,
			DisplayName: decideName,
		},
	}

	if decideEnforce {
		return runEnforced(cfg, cfgHash, g, req, log)
	}

	decision := g.Engine.Decide(context.Background(), req)
	printDecision(decision, g.SafeURL)
	if decision.Verdict == model.Deny {
		os.Exit(1)
	}
	return nil
}

func runEnforced(cfg *config.Config, cfgHash string, g *gate.Gate, req engine.Request, log *zap.Logger) error {
	var recorder guard.Recorder
	if cfg.AuditPath != "" {
		dest, err := audit.Open(cfg.AuditPath)
		if err != nil {
			return fmt.Errorf("open decision log: %w", err)
		}
		defer dest.Close()
		recorder = audit.NewRecorder(dest, cfgHash, log)
	}

	gd := guard.New(g.Engine, g.Exempt, printNavigator{}, g.SafeURL, recorder, log)
	out := gd.EvaluateAndEnforce(context.Background(), req)

	printDecision(out.Decision, g.SafeURL)
	if out.Decision.Verdict == model.Deny {
		os.Exit(1)
	}
	return nil
}

func printDecision(d model.AccessDecision, safeURL string) {
	if decideFormat == "json" {
		out, _ := json.MarshalIndent(map[string]any{
			"decision": d,
			"safe_url": safeURL,
		}, "", "  ")
		fmt.Println(string(out))
		return
	}
	fmt.Printf("%s (%s)", strings.ToUpper(string(d.Verdict)), d.Reason)
	if d.Detail != "" {
		fmt.Printf(": %s", d.Detail)
	}
	fmt.Println()
}

// printNavigator stands in for the host's navigation handle.
type printNavigator struct{}

func (printNavigator) RedirectTo(url string) {
	fmt.Printf("redirect -> %s\n", url)
}

// fileNameReader snapshots rendered names from a file, one per line.
type fileNameReader struct {
	path string
}

func (r fileNameReader) RenderedNames() []string {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

// staticBanner is a fixed rendered visibility label.
type staticBanner string

func (b staticBanner) RenderedBanner() string { return string(b) }
