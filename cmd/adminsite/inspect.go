package main

import (
	"fmt"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/leeforge/adminsite/json"
	"github.com/leeforge/adminsite/logging"
	"github.com/leeforge/adminsite/permission"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Print the routes, permission codes and plugins of the configured site",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, logging.Nop())
			if err != nil {
				return err
			}
			defer func() { _ = a.runtime.Shutdown(cmd.Context()) }()

			out, err := a.inspect()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
}

// report is the inspect output: the permission snapshot of the router
// plus every attached plugin.
type report struct {
	permission.Snapshot
	Plugins []pluginInfo
}

type pluginInfo struct {
	View        string
	Plugin      string
	Fields      []string `json:",omitempty"`
	Description string   `json:",omitempty"`
}

// inspect renders the site report as JSON.
func (a *app) inspect() ([]byte, error) {
	router, ok := a.site.Handler().(chi.Routes)
	if !ok {
		return nil, fmt.Errorf("site handler is not a chi router")
	}
	snap, err := permission.SnapshotFromRouter(router)
	if err != nil {
		return nil, err
	}
	out := report{Snapshot: snap}
	for _, vt := range a.site.AttachedViews() {
		for _, pt := range a.site.Plugins(vt) {
			out.Plugins = append(out.Plugins, pluginInfo{
				View:        vt.Name(),
				Plugin:      pt.PluginName(),
				Fields:      pt.Fields(),
				Description: pt.Description(),
			})
		}
	}
	return json.MarshalIndent(out, "", "  ")
}
