package cmd

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tonimelisma/eduapi-client/internal/app"
	"github.com/tonimelisma/eduapi-client/internal/ui"
)

var allowedMethods = []string{
	http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete,
}

var requestCmd = &cobra.Command{
	Use:   "request <METHOD> <path>",
	Short: "Send one request through the authenticated pipeline",
	Long: `Sends a single request to the API and pretty-prints the JSON response.
The path is resolved against base_url unless it is an absolute URL.

Example:
  eduapi request GET /api/courses
  eduapi request POST /api/courses --data '{"title":"Go 101"}'`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return fmt.Errorf("initializing app: %w", err)
		}
		return requestLogic(a, cmd, args)
	},
}

func requestLogic(a *app.App, cmd *cobra.Command, args []string) error {
	method := strings.ToUpper(args[0])
	if !isAllowedMethod(method) {
		return fmt.Errorf("unsupported method %q, expected one of %s", args[0], strings.Join(allowedMethods, ", "))
	}
	data, _ := cmd.Flags().GetString("data")

	res, err := a.Request(cmd.Context(), method, args[1], data)
	if err != nil {
		return err
	}
	ui.DisplayResponse(res)
	return nil
}

func isAllowedMethod(method string) bool {
	for _, m := range allowedMethods {
		if m == method {
			return true
		}
	}
	return false
}

func init() {
	rootCmd.AddCommand(requestCmd)
	requestCmd.Flags().String("data", "", "JSON request body")
}
