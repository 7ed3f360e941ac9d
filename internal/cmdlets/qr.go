package cmdlets

import (
	"fmt"
	"os"

	"github.com/mdp/qrterminal/v3"
	"github.com/spf13/cobra"
)

var (
	qrCmd = &cobra.Command{
		Use:   "qr",
		Short: "Show the operator page as a QR code",
		Run:   qrCmdRun,
	}
)

func init() {
	rootCmd.AddCommand(qrCmd)
}

func qrCmdRun(c *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}

	qrterminal.Generate(cfg.OperatorURL(), qrterminal.L, os.Stdout)
	fmt.Println(cfg.OperatorURL())
	fmt.Println("Access phrase:", cfg.Web.AccessPhrase)
}
