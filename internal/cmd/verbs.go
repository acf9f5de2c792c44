package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// newVerbCmd returns a shortcut for `tusk api -X <method>`.
func newVerbCmd(method string) *cobra.Command {
	var reqFlags requestFlags
	name := strings.ToLower(method)

	cmd := &cobra.Command{
		Use:     name + " <path>",
		Short:   fmt.Sprintf("Send a %s request", method),
		Example: fmt.Sprintf("  tusk %s %s", name, verbExample(method)),
		Args:    cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd, method, args[0], &reqFlags)
		}),
	}
	reqFlags.bind(cmd)
	return cmd
}

func verbExample(method string) string {
	switch method {
	case "POST":
		return `statuses -f status="Hello from tusk"`
	case "PATCH":
		return `accounts/update_credentials -f note="Terminal enthusiast"`
	case "PUT":
		return `statuses/:id -f id=1 -f status="Edited"`
	case "DELETE":
		return `statuses/:id -f id=1`
	default:
		return `accounts/:id -f id=1`
	}
}
