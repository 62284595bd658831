package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/studyhall-ai/studyhall/pkg/registry"
)

func newModelsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List configured models",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			reg, err := registry.Load(cfg.ModelsPath)
			if err != nil {
				return err
			}

			def := reg.DefaultModel()
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "MODEL\tPROVIDER\tBACKEND NAME\tMAX TOKENS\tCOST/1K\tDEFAULT")
			for _, id := range reg.ModelIDs() {
				mc, ok := reg.Model(id)
				if !ok {
					continue
				}
				mark := ""
				if id == def {
					mark = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t$%.4f\t%s\n",
					id, mc.Provider, mc.ModelName, mc.MaxTokens, mc.CostPer1KTokens, mark)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "studyhall.yaml", "path to config file")
	return cmd
}
