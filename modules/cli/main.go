package cli

import (
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/KimMachineGun/automemlimit/memlimit"
	"github.com/coffeegist/bofhound/modules/activedirectory"
	"github.com/coffeegist/bofhound/modules/cache"
	"github.com/coffeegist/bofhound/modules/parsers"
	"github.com/coffeegist/bofhound/modules/ui"
	"github.com/coffeegist/bofhound/modules/uploader"
	"github.com/coffeegist/bofhound/modules/version"
	"github.com/coffeegist/bofhound/modules/writer"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/automaxprocs/maxprocs"
)

var (
	Root = &cobra.Command{
		Use:           "bofhound",
		Short:         version.VersionStringShort(),
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	loglevel     = Root.PersistentFlags().String("loglevel", "info", "Console log level")
	logfile      = Root.PersistentFlags().String("logfile", "", "File to log to")
	logfilelevel = Root.PersistentFlags().String("logfilelevel", "info", "Log file log level")

	input           = Root.Flags().StringP("input", "i", ".", "File or folder of logs to parse")
	output          = Root.Flags().StringP("output", "o", ".", "Folder to write JSON output to")
	parser          = Root.Flags().StringP("parser", "p", "ldapsearchbof", "Log format to parse: ldapsearchbof, havoc, brc4, outflankc2, mythic")
	propertieslevel = Root.Flags().String("properties-level", "member", "Which object properties end up in the output: standard, member, all")
	zipoutput       = Root.Flags().Bool("zip", false, "Pack the JSON files into one zip archive")
	workers         = Root.Flags().Int("workers", 0, "Parallel workers for parsing and ACL resolution (0 autodetects)")

	nocache     = Root.Flags().Bool("no-cache", false, "Disable the object cache")
	cachefile   = Root.Flags().String("cache-file", "", "Object cache location (defaults to bofhound.cache in the output folder)")
	contextfrom = Root.Flags().String("context-from", "", "Seed SID and schema lookups from another cache file")

	mythicserver = Root.Flags().String("mythic-server", "", "Mythic server to pull ldapsearch task output from")
	mythictoken  = Root.Flags().String("mythic-token", "", "Mythic API token")

	bhserver   = Root.Flags().String("bh-server", "", "BloodHound CE server to upload the generated files to")
	bhtokenid  = Root.Flags().String("bh-token-id", "", "BloodHound API token ID")
	bhtokenkey = Root.Flags().String("bh-token-key", "", "BloodHound API token key")

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Show bofhound version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			ui.Info().Msg(version.ProgramVersionShort())
			return nil
		},
	}

	cacheStatsCmd = &cobra.Command{
		Use:   "cache-stats",
		Short: "Show object cache statistics",
		RunE:  showCacheStats,
	}
)

func bindFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		if !f.Changed && viper.IsSet(f.Name) {
			f.Value.Set(viper.GetString(f.Name))
		}
	})
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if !f.Changed && viper.IsSet(f.Name) {
			f.Value.Set(viper.GetString(f.Name))
		}
	})
	for _, subCommand := range cmd.Commands() {
		bindFlags(subCommand)
	}
}

func loadConfiguration(cmd *cobra.Command) {
	viper.SetEnvPrefix("BOFHOUND_")
	viper.AutomaticEnv()

	configfilename := "bofhound.yaml"
	viper.SetConfigFile(configfilename)
	if err := viper.ReadInConfig(); err == nil {
		ui.Info().Msgf("Using configuration file: %v", viper.ConfigFileUsed())
	} else {
		ui.Debug().Msgf("No settings loaded from %v: %v", configfilename, err.Error())
	}

	bindFlags(cmd)
}

func init() {
	cobra.OnInitialize(func() {
		loadConfiguration(Root)
	})

	Root.AddCommand(versionCmd)
	Root.AddCommand(cacheStatsCmd)

	Root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		ll, err := ui.LogLevelString(*loglevel)
		if err != nil {
			ui.Error().Msgf("Invalid log level: %v - use one of: %v", *loglevel, ui.LogLevelStrings())
		} else {
			ui.SetLoglevel(ll)
		}

		if *logfile != "" {
			timestamp := time.Now().Format(time.DateOnly)
			*logfile = strings.Replace(*logfile, "{timestamp}", timestamp, 1)

			ll, err = ui.LogLevelString(*logfilelevel)
			if err != nil {
				ui.Error().Msgf("Invalid log file log level: %v - use one of: %v", *logfilelevel, ui.LogLevelStrings())
			} else {
				ui.SetLogFile(*logfile, ll)
			}
		} else {
			ui.SetLogFile("", ui.LevelInfo) // Tell logger to stop buffering early output
		}

		ui.Info().Msg(version.VersionString())

		maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
			ui.Debug().Msgf(format, args...)
		}))
		memlimit.SetGoMemLimitWithOpts(memlimit.WithRatio(0.8))

		return nil
	}

	Root.RunE = run
}

func Run() error {
	return Root.Execute()
}

func workerCount() int {
	if *workers > 0 {
		return *workers
	}
	count := runtime.NumCPU() * 9 / 10
	if count < 1 {
		count = 1
	}
	return count
}

func cachePath() string {
	if *cachefile != "" {
		return *cachefile
	}
	return filepath.Join(*output, "bofhound.cache")
}

// openCache is best effort unless the user asked for a specific file.
// A run without a cache still produces full output, it just reprocesses
// everything.
func openCache() *cache.ObjectCache {
	if *nocache {
		return nil
	}
	objectcache, err := cache.Open(cachePath())
	if err != nil {
		if *cachefile != "" {
			ui.Fatal().Msgf("Could not open cache %v: %v", *cachefile, err)
		}
		ui.Warn().Msgf("Could not open cache %v, continuing without: %v", cachePath(), err)
		return nil
	}
	return objectcache
}

func dataSource() (parsers.DataSource, parsers.Tool, error) {
	tool, err := parsers.ParseTool(*parser)
	if err != nil {
		return nil, tool, err
	}

	if tool == parsers.ToolMythic || *mythicserver != "" {
		if *mythicserver == "" || *mythictoken == "" {
			return nil, tool, errors.New("mythic parsing needs both --mythic-server and --mythic-token")
		}
		source := parsers.NewMythicDataSource(*mythicserver, *mythictoken)
		if err := source.Connect(); err != nil {
			return nil, tool, errors.Wrapf(err, "connecting to mythic server %v", *mythicserver)
		}
		return source, parsers.ToolMythic, nil
	}

	return parsers.NewFileDataSource(*input, tool.DefaultFilePattern()), tool, nil
}

func run(cmd *cobra.Command, args []string) error {
	level, err := writer.ParsePropertiesLevel(*propertieslevel)
	if err != nil {
		return err
	}

	source, tool, err := dataSource()
	if err != nil {
		return err
	}

	objectcache := openCache()
	if objectcache != nil {
		defer objectcache.Close()
	}

	ad := activedirectory.NewADDS()

	if *contextfrom != "" {
		contextcache, err := cache.Open(*contextfrom)
		if err != nil {
			ui.Fatal().Msgf("Could not open context cache %v: %v", *contextfrom, err)
		}
		ctx, err := contextcache.ExportContext()
		contextcache.Close()
		if err != nil {
			return errors.Wrapf(err, "loading context from %v", *contextfrom)
		}
		ad.ImportContext(ctx)
	}

	pipeline := parsers.NewParsingPipeline(tool.Factory())
	result, err := pipeline.Process(source, workerCount())
	if err != nil {
		return err
	}

	ldaprecords := result.Objects(parsers.ObjectTypeLdap)
	ui.Info().Msgf("Parsed %v LDAP objects and %v local objects",
		len(ldaprecords), result.Total()-len(ldaprecords))

	if objectcache != nil {
		ldaprecords = objectcache.FilterChanged(ldaprecords)
	}

	ad.ImportRecords(ldaprecords)

	broker := activedirectory.NewLocalBroker()
	var knownDomainSIDs []string
	for _, sid := range ad.DomainSIDs {
		knownDomainSIDs = append(knownDomainSIDs, sid)
	}
	broker.Import(result, knownDomainSIDs)
	broker.AttachTo(ad)

	ad.ProcessACLs(workerCount())

	if objectcache != nil {
		dnmap := make(map[string]string)
		for dn, obj := range ad.DNMap {
			dnmap[dn] = obj.ObjectIdentifier
		}
		if err := objectcache.StoreObjects(ad.TypedObjects(), *input); err != nil {
			ui.Warn().Msgf("Could not store objects in cache: %v", err)
		}
		if err := objectcache.StoreContext(ad.BuildLookupContext(), dnmap); err != nil {
			ui.Warn().Msgf("Could not store lookup context in cache: %v", err)
		}
	}

	session := writer.NewSession(*output, level, *zipoutput)
	if err := session.Write(ad); err != nil {
		return err
	}
	if len(session.Files()) == 0 {
		ui.Warn().Msgf("No objects to write, nothing generated")
		return nil
	}

	if *bhserver != "" {
		if *bhtokenid == "" || *bhtokenkey == "" {
			return errors.New("uploading needs both --bh-token-id and --bh-token-key")
		}
		client := uploader.NewClient(*bhserver, *bhtokenid, *bhtokenkey)
		if err := client.Upload(session.Files()); err != nil {
			return errors.Wrapf(err, "uploading to %v", *bhserver)
		}
	}

	return nil
}

func showCacheStats(cmd *cobra.Command, args []string) error {
	objectcache, err := cache.Open(cachePath())
	if err != nil {
		return errors.Wrapf(err, "opening cache %v", cachePath())
	}
	defer objectcache.Close()

	stats, err := objectcache.Statistics()
	if err != nil {
		return err
	}

	ui.Info().Msgf("Cache %v (version %v)", objectcache.Path(), stats.Version)
	ui.Info().Msgf("Objects: %v", stats.Objects)
	for entrytype, count := range stats.ObjectsByType {
		ui.Info().Msgf("  %v: %v", entrytype, count)
	}
	ui.Info().Msgf("SID mappings: %v", stats.SIDMappings)
	ui.Info().Msgf("DN mappings: %v", stats.DNMappings)
	ui.Info().Msgf("Domain SIDs: %v", stats.DomainSIDs)
	ui.Info().Msgf("Schema GUIDs: %v", stats.SchemaGUIDs)
	return nil
}
