package chshare

import (
	"fmt"
	"io"

	"github.com/kardianos/service"
)

// HandleServiceCommand runs one of the install/uninstall/start/stop/status
// commands against svc and reports the outcome to out.
// service.Control is not used because on uninstall it leaves the service running.
func HandleServiceCommand(svc service.Service, command string, out io.Writer) error {
	switch command {
	case "install":
		if err := svc.Install(); err != nil {
			return err
		}
		fmt.Fprintln(out, "Service installed")
	case "uninstall":
		status, err := svc.Status()
		if err != nil {
			return err
		}
		if status == service.StatusRunning {
			if err := svc.Stop(); err != nil {
				return err
			}
		}
		if err := svc.Uninstall(); err != nil {
			return err
		}
		fmt.Fprintln(out, "Service uninstalled")
	case "start":
		if err := svc.Start(); err != nil {
			return err
		}
		fmt.Fprintln(out, "Service started")
	case "stop":
		if err := svc.Stop(); err != nil {
			return err
		}
		fmt.Fprintln(out, "Service stopped")
	case "status":
		status, err := svc.Status()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "Service", statusName(status))
	default:
		return fmt.Errorf("unknown service command %q", command)
	}
	return nil
}

func statusName(s service.Status) string {
	switch s {
	case service.StatusRunning:
		return "running"
	case service.StatusStopped:
		return "stopped"
	default:
		return "status unknown"
	}
}
