package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/thoreinstein/ovsnap/cmd"
	"github.com/thoreinstein/ovsnap/internal/errors"
	"github.com/thoreinstein/ovsnap/internal/paths"
)

var (
	genDocDir  string
	genDocKind string
)

var genDocCmd = &cobra.Command{
	Use:    "gen-doc",
	Short:  "Generate Markdown or man page documentation for the CLI",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(c *cobra.Command, _ []string) error {
		if genDocDir == "" {
			return errors.NewUserError(errors.New("output directory is required"), "pass --dir")
		}
		if err := paths.EnsureDir(genDocDir, 0o755); err != nil {
			return errors.Wrap(err, "creating output directory")
		}

		root := c.Root()
		root.DisableAutoGenTag = true

		var err error
		switch genDocKind {
		case "markdown":
			err = doc.GenMarkdownTreeCustom(root, genDocDir, filePrepender, linkHandler)
		case "man":
			err = doc.GenManTree(root, &doc.GenManHeader{
				Title:   "OVSNAP",
				Section: "8",
				Source:  "ovsnap " + cmd.Version,
				Manual:  "ovsnap manual",
			}, genDocDir)
		default:
			return errors.NewUserError(errors.Newf("unknown doc kind %q", genDocKind), "use --kind markdown or man")
		}
		if err != nil {
			return errors.Wrapf(err, "generating %s", genDocKind)
		}

		fmt.Fprintf(c.OutOrStdout(), "Documentation generated in %s\n", genDocDir)
		return nil
	},
}

func init() {
	genDocCmd.Flags().StringVarP(&genDocDir, "dir", "d", "", "output directory for documentation")
	genDocCmd.Flags().StringVar(&genDocKind, "kind", "markdown", "documentation kind: markdown, man")
	rootCmd.AddCommand(genDocCmd)
}

// filePrepender adds front matter naming the command, e.g. ovsnap_pki_revoke.md
// becomes "ovsnap pki revoke".
func filePrepender(filename string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	title := strings.ReplaceAll(base, "_", " ")

	return fmt.Sprintf(`---
title: "%s"
description: "Reference for %s"
---
`, title, title)
}

func linkHandler(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	return "/docs/reference/" + strings.ToLower(base) + "/"
}
