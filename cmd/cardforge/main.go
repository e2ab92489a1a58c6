// cardforge — Greeting card rendering.
//
// Usage:
//
//	cardforge -o <file> [--card <path>] [--data <path>] [options]
//	cardforge schema --card <path>
//	cardforge catalog [--json]
//	cardforge gallery
//	cardforge serve [--listen :3002]
//	cardforge init
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/xob0t/cardforge/clients/server"
	"github.com/xob0t/cardforge/pkg/assets"
	"github.com/xob0t/cardforge/pkg/cardspec"
	"github.com/xob0t/cardforge/pkg/catalog"
	"github.com/xob0t/cardforge/pkg/compositor"
	"github.com/xob0t/cardforge/pkg/gallery"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found")
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch os.Args[1] {
	case "init":
		err = runInit(os.Args[2:])
	case "schema":
		err = runSchema(os.Args[2:])
	case "catalog":
		err = runCatalog(os.Args[2:])
	case "gallery":
		err = runGallery(ctx, os.Args[2:])
	case "serve":
		err = runServe(ctx, os.Args[2:])
	case "render":
		err = runRender(ctx, os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		// Default: render mode (all flags on root).
		err = runRender(ctx, os.Args[1:])
	}
	if err != nil {
		fatal(err)
	}
}

// ── Shared setup ──

// logFlag registers --loglevel, defaulting to LOG_LEVEL.
func logFlag(fs *flag.FlagSet) *string {
	return fs.String("loglevel", envOr("LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
}

func setLogLevel(s string) error {
	level, err := logrus.ParseLevel(s)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logrus.SetLevel(level)
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// loadFonts builds the font registry and reports unusable overrides.
func loadFonts(dir string) (*compositor.FontRegistry, error) {
	fonts, warnings, err := compositor.LoadFonts(dir)
	if err != nil {
		return nil, fmt.Errorf("load fonts: %w", err)
	}
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}
	return fonts, nil
}

// newAssets returns an asset library with an optional "dir:" source and,
// when remote is set, URL fetching.
func newAssets(dir string, remote bool) *assets.Library {
	lib := assets.NewLibrary()
	if dir != "" {
		lib.Register("dir", assets.NewDirSource(dir))
	}
	if remote {
		lib.Register("http", assets.NewHTTPSource(nil))
	}
	return lib
}

// ── Commands ──

func runSchema(args []string) error {
	fs := flag.NewFlagSet("schema", flag.ExitOnError)
	var cardPath string
	fs.StringVar(&cardPath, "card", "", "Path to card JSON or .cardzip bundle")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if cardPath == "" {
		return fmt.Errorf("--card is required for schema command")
	}

	card, cleanup, err := cardspec.LoadCard(cardPath)
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Print(cardspec.FormatSchema(card))
	return nil
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	var cardOut, dataOut string
	fs.StringVar(&cardOut, "card", "card.json", "Output path for sample card")
	fs.StringVar(&dataOut, "data", "data.json", "Output path for sample data")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, d := cardspec.ExampleJSON()
	if err := os.WriteFile(cardOut, []byte(c), 0644); err != nil {
		return fmt.Errorf("write card: %w", err)
	}
	if err := os.WriteFile(dataOut, []byte(d), 0644); err != nil {
		return fmt.Errorf("write data: %w", err)
	}

	fmt.Printf("Created: %s, %s\n", cardOut, dataOut)
	fmt.Printf("Run: cardforge -o card.png --card %s --data %s\n", cardOut, dataOut)
	return nil
}

func runCatalog(args []string) error {
	fs := flag.NewFlagSet("catalog", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "Print the catalogs as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"templates":   catalog.Templates(),
			"palette":     catalog.Palette(),
			"fonts":       catalog.Fonts(),
			"filters":     catalog.Filters(),
			"decorations": catalog.Decorations(),
			"messages":    catalog.QuickMessages(),
			"presets":     catalog.Presets,
		})
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TEMPLATES:")
	for _, t := range catalog.Templates() {
		fmt.Fprintf(tw, "    %s\t%s\t%s\t%s\n", t.Name, t.Background, t.BorderColor, t.Pattern)
	}
	fmt.Fprintln(tw, "\nFONTS:")
	for _, f := range catalog.Fonts() {
		fmt.Fprintf(tw, "    %s\t%s\n", f.Name, f.Family)
	}
	fmt.Fprintln(tw, "\nFILTERS:")
	for _, f := range catalog.Filters() {
		fmt.Fprintf(tw, "    %s\t%s\n", f.Value, f.Name)
	}
	fmt.Fprintln(tw, "\nDECORATIONS:")
	for _, d := range catalog.Decorations() {
		fmt.Fprintf(tw, "    %s\t%s\n", d.Ref, d.Name)
	}
	fmt.Fprintln(tw, "\nCOLORS:")
	fmt.Fprintf(tw, "    %s\n", strings.Join(catalog.Palette(), " "))
	fmt.Fprintln(tw, "\nMESSAGES:")
	for i, m := range catalog.QuickMessages() {
		fmt.Fprintf(tw, "    %d\t%s\n", i, m)
	}
	fmt.Fprintln(tw, "\nPRESETS:")
	for _, name := range []string{"small", "phone", "print", "square", "story"} {
		p := catalog.Presets[name]
		fmt.Fprintf(tw, "    %s\t%dx%d\n", name, p[0], p[1])
	}
	return tw.Flush()
}

func runGallery(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("gallery", flag.ExitOnError)
	logLevel := logFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := setLogLevel(*logLevel); err != nil {
		return err
	}

	g, err := gallery.GetGallery(ctx)
	if err != nil {
		return err
	}
	entries, err := g.List(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSIZE\tCREATED\tLOCATION")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", e.ID, e.Name, e.Size, e.CreatedAt.Format("2006-01-02 15:04"), e.Location)
	}
	return tw.Flush()
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	listen := fs.String("listen", envOr("CARDFORGE_LISTEN", ":3002"), "The address to listen on")
	fontDir := fs.String("fonts", os.Getenv("FONT_DIR"), "Directory of TTF/OTF font overrides")
	assetDir := fs.String("assets", os.Getenv("ASSET_DIR"), "Directory served as dir:<path> assets")
	open := fs.Bool("open", false, "Open the API in a browser")
	logLevel := logFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := setLogLevel(*logLevel); err != nil {
		return err
	}

	fonts, err := loadFonts(*fontDir)
	if err != nil {
		return err
	}
	g, err := gallery.GetGallery(ctx)
	if err != nil {
		return err
	}
	return server.RunServe(*listen, server.Config{
		Fonts:     fonts,
		Gallery:   g,
		NewAssets: func() assets.Store { return newAssets(*assetDir, false) },
	}, *open)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func printUsage() {
	fmt.Print(`cardforge — Greeting Card Rendering

USAGE:
    cardforge -o <file> --card <path> [--data <path>] [options]
    cardforge -o <file> [--template <name>] [--message <text>] [options]
    cardforge schema --card <path>
    cardforge catalog [--json]
    cardforge gallery
    cardforge serve [--listen :3002]
    cardforge init [options]

CARD MODE:
    --card <path>          Card JSON or .cardzip bundle
    --data <path>          Data JSON with overrides (optional)
    -o, --output <path>    Output file (.png, .jpg, .bmp, .tiff or .gif)

QUICK MODE:
    --template <name>      Template name (default: Classic)
    --preset <name>        Canvas preset: small, phone, print, square, story
    --message <text>       Card message (default: Happy Birthday!)
    --quick <n>            Use quick message n instead
    --photo <path|ref>     Photo file or asset reference
    --filter <name>        Photo filter (none, grayscale, sepia, blur, sharpen, contrast)
    --stickers <refs>      Comma-separated decorations, e.g. deco:star,deco:cake
    --color <hex>          Text color
    --font <name>          Font name

OUTPUT:
    --format <name>        Override the format implied by the output extension
    --quality <1-100>      JPEG quality (default: 95)
    --save                 Also save the card to the gallery (GALLERY_TYPE)

SERVER:
    cardforge serve [--listen :3002] [--fonts <dir>] [--assets <dir>] [--open]

ENVIRONMENT:
    LOG_LEVEL, FONT_DIR, ASSET_DIR, CARDFORGE_LISTEN
    GALLERY_TYPE (filesystem, sqlite, s3, memory), GALLERY_PATH, GALLERY_DSN, S3_BUCKET_NAME

EXAMPLES:
    cardforge init
    cardforge -o card.png --card card.json --data data.json
    cardforge -o card.jpg --template Confetti --message "Happy 30th!" --photo me.jpg --filter sepia
    cardforge schema --card card.json
    GALLERY_TYPE=sqlite cardforge -o card.png --card card.json --save
`)
}
