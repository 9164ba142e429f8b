package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/KeyIP-JTNN/pkg/client"
)

// RunStatus combines the trainer snapshot and readiness of a status server.
type RunStatus struct {
	Status    *client.Status    `json:"status,omitempty"`
	Readiness *client.Readiness `json:"readiness"`
	Error     string            `json:"error,omitempty"`
}

func (r RunStatus) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ready: %s\n", r.Readiness.Status)
	for name, c := range r.Readiness.Components {
		fmt.Fprintf(&b, "  %s: %s %s\n", name, c.Status, c.Error)
	}
	if r.Status == nil {
		fmt.Fprintf(&b, "run: %s\n", r.Error)
		return b.String()
	}
	s := r.Status
	fmt.Fprintf(&b, "run %s: running=%t step=%d epoch=%d loss=%.4f beta=%.4g lr=%.4g skipped=%d\n",
		s.RunID, s.Running, s.Step, s.Epoch, s.Loss, s.Beta, s.LearningRate, s.Skipped)
	if s.Checkpoint != "" {
		fmt.Fprintf(&b, "checkpoint: %s\n", s.Checkpoint)
	}
	return b.String()
}

// serverURL turns a listen address such as ":9090" into a base URL.
func serverURL(addr string) string {
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return addr
	}
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr
}

// NewStatusCmd queries a running status server.
func NewStatusCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of a running training job",
		Example: `  jtnn status
  jtnn status --addr http://trainer-0:9090 -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cc.Config.Metrics.ListenAddr
			}
			c, err := client.NewClient(serverURL(addr))
			if err != nil {
				return err
			}
			ready, err := c.Ready(cmd.Context())
			if err != nil {
				return err
			}
			out := RunStatus{Readiness: ready}
			if out.Status, err = c.Status(cmd.Context()); err != nil {
				out.Error = err.Error()
			}
			return PrintResult(cmd, out)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "status server address (default metrics.listen_addr)")
	return cmd
}

//Personal.AI order the ending
