package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pri-23-03/Gptrader/internal/backend"
	"github.com/pri-23-03/Gptrader/internal/schema"
)

// VersionInfo is the output of the version command.
type VersionInfo struct {
	Version string `json:"version"`
}

func (v VersionInfo) String() string { return v.Version }

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.output(cmd).Success(VersionInfo{Version: Version})
		},
	}
}

// SchemaList is the output of the show-schemas command.
type SchemaList struct {
	Names []string `json:"names"`
}

func (s SchemaList) String() string { return strings.Join(s.Names, ", ") }

// NewShowSchemasCommand creates the show-schemas command.
func NewShowSchemasCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show-schemas",
		Short: "Show available event schema names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.output(cmd).Success(SchemaList{Names: schema.Names()})
		},
	}
}

// settingNames are the environment names of each role's backend setting.
var settingNames = map[string]string{
	backend.RoleBus:      "BUS_BACKEND",
	backend.RoleIndex:    "INDEX_BACKEND",
	backend.RoleExecutor: "EXEC_BACKEND",
}

// DiagInfo is the output of the diag command.
type DiagInfo struct {
	Backends   []backend.Selection `json:"backends"`
	BaseDir    string              `json:"base_dir"`
	Partitions int                 `json:"partitions"`
	EmbedDim   int                 `json:"embed_dim"`
	EmbedHash  string              `json:"embed_hash"`
	Alpha      float64             `json:"alpha"`
}

func (d DiagInfo) String() string {
	var b strings.Builder
	b.WriteString("Backends:\n")
	for _, s := range d.Backends {
		fmt.Fprintf(&b, "  %s=%s -> %s\n", settingNames[s.Role], s.Setting, s.Impl)
	}
	b.WriteString("Settings:\n")
	fmt.Fprintf(&b, "  base_dir=%s\n", d.BaseDir)
	fmt.Fprintf(&b, "  partitions=%d\n", d.Partitions)
	fmt.Fprintf(&b, "  embed_dim=%d embed_hash=%s alpha=%v", d.EmbedDim, d.EmbedHash, d.Alpha)
	return b.String()
}

// NewDiagCommand creates the diag command.
func NewDiagCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "diag",
		Short: "Print selected backends and key settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, cfg, err := rootOpts.openBackends()
			if err != nil {
				return err
			}
			defer b.Close()

			return rootOpts.output(cmd).Success(DiagInfo{
				Backends:   b.Describe(),
				BaseDir:    cfg.BaseDir,
				Partitions: cfg.Partitions,
				EmbedDim:   cfg.EmbedDim,
				EmbedHash:  cfg.EmbedHash,
				Alpha:      cfg.Alpha,
			})
		},
	}
}
