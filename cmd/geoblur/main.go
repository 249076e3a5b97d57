// Command geoblur blurs the locations of a MaxMind DB city database.
//
// Usage:
//
//	geoblur -mmdb GeoLite2-City.mmdb -geonames-cities cities500.txt \
//	    -admincodes admin1CodesASCII.txt -min-population 5000 \
//	    -target blurred.mmdb
//
// Records pointing at a city with fewer inhabitants than -min-population
// are moved to the least populous qualifying city nearby, or lose their
// location when there is none within 500km.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/andreiashu/geoblur"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("geoblur", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		mmdbPath      = fs.String("mmdb", "", "path to the MaxMind DB file to blur")
		citiesPath    = fs.String("geonames-cities", "", "path to the GeoNames cities file")
		adminPath     = fs.String("admincodes", "", "path to the GeoNames admin1 codes file")
		minPopulation = fs.Int64("min-population", geoblur.DefaultMinPopulation, "minimum population of a disclosed city")
		databaseType  = fs.String("database-type", "", "database type written to the target metadata (default: keep the source's)")
		target        = fs.String("target", "", "path of the blurred MaxMind DB file to write")
		quiet         = fs.Bool("quiet", false, "only log errors")
		logLevel      = fs.String("log-level", "info", "log level: debug, info, warn, error, off")
		configPath    = fs.String("config", "", "optional YAML configuration file")
		metricsPath   = fs.String("metrics-file", "", "write run metrics in Prometheus text format to this file")
	)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	var fileCfg *geoblur.FileConfig
	if *configPath != "" {
		var err error
		fileCfg, err = geoblur.LoadFileConfig(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
		if !set["admincodes"] && fileCfg.AdminCodes != "" {
			*adminPath = fileCfg.AdminCodes
		}
		if !set["log-level"] && fileCfg.LogLevel != "" {
			*logLevel = fileCfg.LogLevel
		}
	}

	logger, err := geoblur.NewLogger(*logLevel)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		fs.Usage()
		return 1
	}
	logger.SetOutput(stderr)

	if !isFile(*mmdbPath) {
		logger.Warn("error: Unable to locate mmdb file")
		fs.Usage()
		return 1
	}
	if !isFile(*citiesPath) {
		logger.Warn("error: Unable to locate geonames cities file")
		fs.Usage()
		return 1
	}
	if *adminPath != "" && !isFile(*adminPath) {
		logger.Warn("error: Unable to locate admincodes file")
		fs.Usage()
		return 1
	}
	if *target == "" {
		logger.Warn("error: No target file given")
		fs.Usage()
		return 1
	}

	opts := fileCfg.Options()
	if set["min-population"] {
		opts = append(opts, geoblur.WithMinPopulation(*minPopulation))
	}
	if set["database-type"] {
		opts = append(opts, geoblur.WithDatabaseType(*databaseType))
	}
	if set["quiet"] {
		opts = append(opts, geoblur.WithQuiet(*quiet))
	}
	opts = append(opts, geoblur.WithLogger(logger))

	var stats *geoblur.Stats
	if *metricsPath != "" {
		stats = geoblur.NewStats()
		opts = append(opts, geoblur.WithStats(stats))
	}

	if err := blur(*mmdbPath, *citiesPath, *adminPath, *target, opts, stats); err != nil {
		logger.Errorf("%v", err)
		return 1
	}

	if stats != nil {
		if err := stats.WriteTextfile(*metricsPath); err != nil {
			logger.Errorf("%v", err)
			return 1
		}
	}
	return 0
}

func blur(mmdbPath, citiesPath, adminPath, target string, opts []geoblur.Option, stats *geoblur.Stats) error {
	b, err := geoblur.Load(citiesPath, adminPath, opts...)
	if err != nil {
		return err
	}

	src, err := geoblur.OpenStore(mmdbPath)
	if err != nil {
		return err
	}
	defer src.Close()

	start := time.Now()
	n, err := geoblur.Rewrite(mmdbPath, b.Blur(src.Entries()), target, opts...)
	if err != nil {
		return fmt.Errorf("blurring %s: %w", mmdbPath, err)
	}
	stats.ObservePhase("rewrite", time.Since(start))
	b.Logger().Infof("Wrote %d prefixes to %s", n, target)
	return nil
}

func isFile(path string) bool {
	if path == "" {
		return false
	}
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}
