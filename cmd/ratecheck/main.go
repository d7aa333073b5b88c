// Command ratecheck validates shipping rate files and prices sample carts offline.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ClaudioParedesArbeloDev/GLD-Services/internal/shipping"
	"github.com/ClaudioParedesArbeloDev/GLD-Services/internal/shipping/ratefile"
)

const envPrefix = "RATECHECK"

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "ratecheck",
		Short: "Inspect and exercise shipping rate configuration",
		Long: `ratecheck loads a shipping rate file (or the embedded defaults), validates it the
same way the API does at startup, and prices carts against it.

Flags can also be set through RATECHECK_* environment variables, for example
RATECHECK_RATES=./rates.yaml or RATECHECK_POLICY=breakdown.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("rates", "", "rate file (default: embedded rates)")
	cmd.PersistentFlags().String("policy", "", "pricing policy override (breakdown, ranked)")
	cmd.PersistentFlags().String("locale", "es-AR", "locale for money and mass labels")
	_ = v.BindPFlag("rates", cmd.PersistentFlags().Lookup("rates"))
	_ = v.BindPFlag("policy", cmd.PersistentFlags().Lookup("policy"))
	_ = v.BindPFlag("locale", cmd.PersistentFlags().Lookup("locale"))

	cmd.AddCommand(validateCmd(v))
	cmd.AddCommand(zonesCmd(v))
	cmd.AddCommand(quoteCmd(v))
	return cmd
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadEngine builds the engine the API would build for the same rate file and policy.
func loadEngine(v *viper.Viper) (*shipping.Engine, error) {
	cfg, err := ratefile.Load(v.GetString("rates"))
	if err != nil {
		return nil, err
	}
	engine, err := shipping.NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	if policy := strings.ToLower(strings.TrimSpace(v.GetString("policy"))); policy != "" {
		return engine.WithPolicy(shipping.Policy(policy))
	}
	return engine, nil
}

func loadFormatter(v *viper.Viper, engine *shipping.Engine) (*shipping.Formatter, error) {
	return shipping.NewFormatter(v.GetString("locale"), engine.Currency())
}

func rateSource(v *viper.Viper) string {
	if path := strings.TrimSpace(v.GetString("rates")); path != "" {
		return path
	}
	return "embedded rates"
}
