package export

import (
	"os/exec"
	"runtime"

	apperrors "github.com/doclexa/doclexa/internal/errors"
)

// Open hands a URL or file to the platform opener: the browser for http
// links, the mail client for mailto links, the PDF viewer for files.
func Open(target string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", target)
	case "linux":
		cmd = exec.Command("xdg-open", target)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", target)
	default:
		return apperrors.New(apperrors.ErrExportFailed.Code, "no opener for "+runtime.GOOS)
	}

	if err := cmd.Start(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrExportFailed.Code, "could not open "+target)
	}
	return nil
}

// Share opens a generated file with the platform's default handler.
func Share(fileURI string) error {
	return Open(fileURI)
}
