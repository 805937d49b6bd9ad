package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kgarbacinski/AutoViralAI/internal/content"
	"github.com/kgarbacinski/AutoViralAI/internal/types"
)

var nichePath string

var initAccountCmd = &cobra.Command{
	Use:   "init-account",
	Short: "Seed the account niche configuration from a YAML file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		path := nichePath
		if path == "" {
			path = cfg.Core.NicheConfigPath
		}

		niche := content.DefaultAccountNiche()
		if data, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(data, &niche); err != nil {
				return types.WrapError(types.CONFIG_PARSE_FAILED,
					fmt.Sprintf("failed to parse niche file %s", path), err)
			}
			fmt.Printf("Loaded niche from %s.\n", path)
		} else if !os.IsNotExist(err) {
			return types.WrapError(types.CONFIG_LOAD_FAILED,
				fmt.Sprintf("failed to read niche file %s", path), err)
		} else {
			fmt.Printf("No niche file at %s, using the default %s niche.\n", path, niche.Niche)
		}

		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.kb.SaveNicheConfig(ctx, niche); err != nil {
			return err
		}
		fmt.Printf("Account %q initialized with niche %q.\n", cfg.Core.AccountID, niche.Niche)
		return nil
	},
}

func init() {
	initAccountCmd.Flags().StringVar(&nichePath, "niche", "", "path to the niche YAML (defaults to core.niche_config_path)")
}
