//go:build mage

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Runs the headless demo on the textures listed in SKYTEX_TEXTURES
// (space separated). SKYTEX_CONFIG points at an optional TOML file.
func (Run) Demo() error {
	mg.Deps(Build.All)

	textures := strings.Fields(os.Getenv("SKYTEX_TEXTURES"))
	if len(textures) == 0 {
		return fmt.Errorf("SKYTEX_TEXTURES is empty")
	}
	args := []string{}
	if cfg := os.Getenv("SKYTEX_CONFIG"); cfg != "" {
		args = append(args, "-config", cfg)
	}
	args = append(args, textures...)

	fmt.Println("Run demo...")
	_, err := executeCmd("bin/skytex", withArgs(args...), withStream())
	return err
}
