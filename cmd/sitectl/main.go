package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/ShaunJohnsonou/mpumulanga-project/internal/config"
	"github.com/ShaunJohnsonou/mpumulanga-project/internal/db"
	"github.com/ShaunJohnsonou/mpumulanga-project/internal/region"
	"github.com/ShaunJohnsonou/mpumulanga-project/internal/security"
)

func main() {
	dbPath := flag.String("db", "sites.db", "Site database path")
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}
	if err := run(*dbPath, flag.Arg(0), flag.Args()[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "sitectl: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`sitectl - manage speed camera sites

Usage: sitectl [-db sites.db] <command> [options]

Commands:
  add      Register a site from a calibration file and region polygon
  list     List registered sites
  show     Print one site as JSON
  rm       Remove a site
  export   Write a site's calibration and region files for speedcam
  help     Show this help message

Examples:
  sitectl add -name n4-km12 -location "N4 eastbound" -config cam.json -region region_points.json
  sitectl export -out ./n4 n4-km12
  speedcam -db sites.db -site n4-km12 -frames ./frames -detections detections.jsonl`)
}

func run(dbPath, command string, args []string, out io.Writer) error {
	if command == "help" {
		printUsage()
		return nil
	}

	store, err := db.NewDB(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", dbPath, err)
	}
	defer store.Close()

	switch command {
	case "add":
		return handleAdd(store, args, out)
	case "list":
		return handleList(store, out)
	case "show":
		return handleShow(store, args, out)
	case "rm":
		return handleRemove(store, args, out)
	case "export":
		return handleExport(store, args, out)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

func handleAdd(store *db.DB, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	name := fs.String("name", "", "Site name (required)")
	location := fs.String("location", "", "Free-text location")
	cfgPath := fs.String("config", "", "Calibration JSON file (defaults if empty)")
	regionPath := fs.String("region", "", "Region polygon JSON file (default rectangle if empty)")
	notes := fs.String("notes", "", "Operator notes")
	replace := fs.Bool("replace", false, "Overwrite an existing site with the same name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		return fmt.Errorf("add: -name is required")
	}

	cfg := config.Defaults()
	if *cfgPath != "" {
		loaded, err := config.LoadConfig(*cfgPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	poly := region.DefaultPolygon()
	if *regionPath != "" {
		loaded, err := region.LoadPolygon(*regionPath)
		if err != nil {
			return err
		}
		poly = loaded
	}

	site := db.SiteFromConfig(*name, cfg, poly)
	site.Location = *location
	if *notes != "" {
		site.Notes = notes
	}

	if *replace {
		if _, err := store.GetSite(*name); err == nil {
			if err := store.UpdateSite(&site); err != nil {
				return err
			}
			fmt.Fprintf(out, "updated site %s\n", site.Name)
			return nil
		}
	}
	if err := store.CreateSite(&site); err != nil {
		return err
	}
	fmt.Fprintf(out, "added site %s (id %d)\n", site.Name, site.ID)
	return nil
}

func handleList(store *db.DB, out io.Writer) error {
	sites, err := store.ListSites()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tLOCATION\tLIMIT\tFINE ABOVE\tREGION POINTS\tUPDATED")
	for _, s := range sites {
		fmt.Fprintf(tw, "%s\t%s\t%.0f\t%.0f\t%d\t%s\n",
			s.Name, s.Location, s.SpeedLimit, s.SpeedLimit+s.ViolationMargin, len(s.Region), s.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func siteArg(command string, fs *flag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() != 1 {
		return "", fmt.Errorf("%s: expected exactly one site name", command)
	}
	return fs.Arg(0), nil
}

func handleShow(store *db.DB, args []string, out io.Writer) error {
	name, err := siteArg("show", flag.NewFlagSet("show", flag.ContinueOnError), args)
	if err != nil {
		return err
	}
	site, err := store.GetSite(name)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(site)
}

func handleRemove(store *db.DB, args []string, out io.Writer) error {
	name, err := siteArg("rm", flag.NewFlagSet("rm", flag.ContinueOnError), args)
	if err != nil {
		return err
	}
	if err := store.DeleteSite(name); err != nil {
		return err
	}
	fmt.Fprintf(out, "removed site %s\n", name)
	return nil
}

func handleExport(store *db.DB, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	outDir := fs.String("out", ".", "Directory to write <site>.json and <site>_region.json into")
	name, err := siteArg("export", fs, args)
	if err != nil {
		return err
	}
	site, err := store.GetSite(name)
	if err != nil {
		return err
	}

	base := security.SanitizeFilename(site.Name)
	cfgPath := filepath.Join(*outDir, base+".json")
	regionPath := filepath.Join(*outDir, base+"_region.json")

	cfg := site.Apply(&config.Config{})
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode calibration: %w", err)
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", *outDir, err)
	}
	if err := os.WriteFile(cfgPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write calibration: %w", err)
	}
	if err := region.SavePolygon(regionPath, site.Region); err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %s and %s\n", cfgPath, regionPath)
	return nil
}
