package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/s0up4200/iptvkit/extip"
)

var forgetIP bool

// ipCmd represents the ip command
var ipCmd = &cobra.Command{
	Use:   "ip",
	Short: "Show the external IP address providers see",
	Long: `Look up the external IP address through public echo services. When none of
them answers the address of the local outbound interface is shown instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver := extip.New(appCache,
			extip.WithEndpoints(cfg.IP.Endpoints...),
			extip.WithTTL(cfg.IP.TTL),
			extip.WithLogger(logger),
		)
		if forgetIP {
			resolver.Forget()
		}

		res, err := resolver.Lookup(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to look up external IP: %w", err)
		}

		if res.Source == extip.SourceLocal {
			fmt.Printf("%s %s\n", res.IP, styled(dimStyle, "(local address, no echo service answered)"))
			return nil
		}
		fmt.Println(res.IP)
		return nil
	},
}

func init() {
	ipCmd.Flags().BoolVar(&forgetIP, "forget", false, "drop the cached address before looking it up")
	rootCmd.AddCommand(ipCmd)
}
