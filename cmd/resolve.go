package cmd

import (
	"encoding/json"
	"os"

	"github.com/pathwise/pathwise/api"
	"github.com/spf13/cobra"
)

var (
	reqScheme      string
	reqHost        string
	reqPort        int
	reqMethod      string
	reqContextPath string
)

func init() {
	for _, c := range []*cobra.Command{resolveCmd, mapCmd} {
		c.Flags().StringVar(&reqScheme, "scheme", "", "Request scheme (http, https)")
		c.Flags().StringVar(&reqHost, "host", "", "Request host")
		c.Flags().IntVar(&reqPort, "port", -1, "Request port")
		c.Flags().StringVar(&reqContextPath, "context-path", "", "Servlet-style context path prefix")
	}
	resolveCmd.Flags().StringVarP(&reqMethod, "method", "X", "GET", "Request method")
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(mapCmd)
}

func flagContext() *api.RequestContext {
	return &api.RequestContext{
		Scheme:      reqScheme,
		Host:        reqHost,
		Port:        reqPort,
		Method:      reqMethod,
		ContextPath: reqContextPath,
	}
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <path>",
	Short: "Resolve a request path against the content store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, cleanup, err := newEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = cleanup() }()

		res, err := engine.Resolve(cmd.Context(), flagContext(), args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

var mapCmd = &cobra.Command{
	Use:   "map <path>",
	Short: "Map a resource path to its external URL form",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, cleanup, err := newEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = cleanup() }()

		cmd.Println(engine.Map(flagContext(), args[0]))
		return nil
	},
}
