package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	authclient "github.com/eyoklama/authclient"
	"github.com/eyoklama/authclient/cmd/authctl/internal/config"
	"github.com/spf13/cobra"
)

func newRequestCmd() *cobra.Command {
	var data string
	cmd := &cobra.Command{
		Use:   "request METHOD PATH",
		Short: "Send an authorized request to the API",
		Example: `  authctl request GET /courses
  authctl request POST /attendance --data '{"course_id":"BLM101"}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			method := strings.ToUpper(args[0])
			switch method {
			case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			default:
				return fmt.Errorf("unsupported method %q", args[0])
			}

			var body any
			if data != "" {
				if !json.Valid([]byte(data)) {
					return errors.New("--data must be valid JSON")
				}
				body = json.RawMessage(data)
			}

			c, err := config.MustFromContext(cmd.Context()).Provider.Client(cmd.Context())
			if err != nil {
				return err
			}
			var reply json.RawMessage
			if err := c.Do(cmd.Context(), method, args[1], body, &reply); err != nil {
				var apiErr *authclient.APIError
				if errors.As(err, &apiErr) {
					return fmt.Errorf("%s %s: %d %s", method, args[1], apiErr.Status, apiErr.Message)
				}
				return err
			}

			out := cmd.OutOrStdout()
			if len(reply) == 0 {
				fmt.Fprintln(out, "(empty response)")
				return nil
			}
			var pretty bytes.Buffer
			if err := json.Indent(&pretty, reply, "", "  "); err != nil {
				_, err = out.Write(append(reply, '\n'))
				return err
			}
			pretty.WriteByte('\n')
			_, err = pretty.WriteTo(out)
			return err
		},
	}
	cmd.Flags().StringVar(&data, "data", "", "JSON request body")
	return cmd
}
