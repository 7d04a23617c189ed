package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"imgharvest/pkg/listing"
	"imgharvest/pkg/pipeline"
	"imgharvest/pkg/ui"
)

var (
	extractKind        string
	extractMaxRetries  int
	extractBaseDelay   time.Duration
	extractMinDim      int
	extractMaxDim      int
	extractMaxAttempts int
	extractCookies     string
	extractKeyring     string
	extractVault       string
	extractParallel    int
	extractPretty      bool
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract <url>...",
	Short: "Print the photo URLs of one or more listings as JSON",
	Long: `Discover the photos of each listing URL and print one JSON result per URL:

  {"status":"success","total_images":3,"images":["https://..."]}

Status is "error" with an empty image list when nothing was found. Results are
printed in argument order. Logs and progress go to stderr.`,
	Example: `  # MercadoLibre listing
  imgharvest extract https://articulo.mercadolibre.com.ar/MLA-123456-item

  # Facebook Marketplace with exported session cookies
  imgharvest extract --cookies facebook_cookies.json https://www.facebook.com/marketplace/item/123

  # Several listings, three at a time
  imgharvest extract --parallel 3 URL1 URL2 URL3`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	f := extractCmd.Flags()
	f.StringVarP(&extractKind, "kind", "k", "", "force the strategy (static, interactive)")
	f.IntVar(&extractMaxRetries, "max-retries", 0, "static: attempts before giving up")
	f.DurationVar(&extractBaseDelay, "base-delay", 0, "static: base delay between attempts")
	f.IntVar(&extractMinDim, "min-dim", 0, "interactive: lower bound of the dimension band")
	f.IntVar(&extractMaxDim, "max-dim", 0, "interactive: upper bound of the dimension band")
	f.IntVar(&extractMaxAttempts, "max-attempts", 0, "interactive: consecutive steps without new images before stopping")
	f.StringVar(&extractCookies, "cookies", "", "interactive: cookie export file")
	f.StringVar(&extractKeyring, "cookies-keyring", "", "interactive: keychain account holding the cookies")
	f.StringVar(&extractVault, "cookies-vault", "", "interactive: encrypted cookie vault (needs IMGHARVEST_PASSPHRASE)")
	f.IntVarP(&extractParallel, "parallel", "j", 1, "listings processed concurrently")
	f.BoolVar(&extractPretty, "pretty", term.IsTerminal(int(os.Stdout.Fd())), "indent the JSON output")
}

func extractFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	set := func(name string, value interface{}) {
		if cmd.Flags().Changed(name) {
			flags[name] = value
		}
	}
	set("max-retries", extractMaxRetries)
	set("base-delay", extractBaseDelay)
	set("min-dim", extractMinDim)
	set("max-dim", extractMaxDim)
	set("max-attempts", extractMaxAttempts)
	set("cookies", extractCookies)
	set("cookies-keyring", extractKeyring)
	set("cookies-vault", extractVault)
	return flags
}

func runExtract(cmd *cobra.Command, args []string) error {
	var kind listing.Kind
	if extractKind != "" {
		k, ok := listing.ParseKind(extractKind)
		if !ok {
			return fmt.Errorf("unknown kind %q (want static or interactive)", extractKind)
		}
		kind = k
	}
	if extractParallel < 1 {
		return errors.New("--parallel must be at least 1")
	}

	cfg, err := loadConfig(extractFlags(cmd))
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	log.WithFields(map[string]interface{}{"version": version, "listings": len(args)}).Debug("imgharvest starting")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := pipeline.New(cfg, pipeline.WithLogger(log))

	// A failing listing must not cancel its siblings, so the group has no context.
	var g errgroup.Group
	g.SetLimit(extractParallel)

	results := make([]*listing.Result, len(args))
	var (
		mu   sync.Mutex
		errs []error
	)
	for i, u := range args {
		g.Go(func() error {
			res, err := p.Run(ctx, pipeline.Request{URL: u, Kind: kind})
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", u, err))
				mu.Unlock()
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	if extractPretty {
		enc.SetIndent("", "  ")
	}
	for i, res := range results {
		if res == nil {
			continue
		}
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("failed to write result for %s: %w", args[i], err)
		}
	}

	if len(errs) > 0 {
		for _, err := range errs {
			ui.PrintError("Extraction failed", err)
		}
		return fmt.Errorf("%d of %d listings failed", len(errs), len(args))
	}
	return nil
}
