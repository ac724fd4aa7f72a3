package commands

import (
	"fmt"
	"os"

	"github.com/MEKXH/warden/internal/config"
	"github.com/spf13/cobra"
)

func NewInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize Warden configuration",
		RunE:  runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := config.ConfigPath()

	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Config already exists: %s\n", configPath)
		return nil
	}

	cfg := config.DefaultConfig()

	for _, dir := range []string{config.ConfigDir(), cfg.DataDirPath()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("Warden initialized!\n")
	fmt.Printf("Config: %s\n", configPath)
	fmt.Printf("Data:   %s\n", cfg.DataDirPath())
	fmt.Printf("\nNext steps:\n")
	fmt.Printf("1. Set DISCORD_TOKEN (or discord.token) and the channel ids in %s\n", configPath)
	fmt.Printf("2. Map role ids under discord.roles\n")
	fmt.Printf("3. Run 'warden run' to start the bot\n")

	return nil
}
