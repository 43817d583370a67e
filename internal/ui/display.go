// Package ui (display.go) provides the console output helpers used by the
// CLI commands: success and error messages, JSON response rendering, the
// session-expired prompt and progress bars for batch requests.
package ui

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/tonimelisma/eduapi-client/pkg/eduapi"
)

// Success prints a simple success message to standard output.
func Success(msg string) {
	fmt.Println(msg)
}

// PrintError reports err using the standard logger. Validation failures are
// expanded to one line per field and message, in the order the server sent
// them; server failures include the HTTP status when one is known.
func PrintError(err error) {
	var domainErr *eduapi.DomainError
	if errors.As(err, &domainErr) {
		log.Printf("ERROR: %s", domainErr.Message)
		for _, field := range domainErr.Fields {
			for _, detail := range domainErr.Details[field] {
				log.Printf("  %s: %s", field, detail)
			}
		}
		return
	}

	var serverErr *eduapi.ServerError
	if errors.As(err, &serverErr) && serverErr.StatusCode() != 0 {
		log.Printf("ERROR: %s (HTTP %d)", serverErr.Message, serverErr.StatusCode())
		return
	}

	log.Printf("ERROR: %v", err)
}

// DisplayJSON pretty-prints data when it is JSON and prints it verbatim
// otherwise.
func DisplayJSON(data []byte) {
	if len(data) == 0 {
		fmt.Println("(empty response)")
		return
	}
	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "  "); err != nil {
		fmt.Println(string(data))
		return
	}
	fmt.Println(out.String())
}

// DisplayResponse prints the status line followed by the body.
func DisplayResponse(res *eduapi.Response) {
	fmt.Printf("%s %s -> %d\n", res.Request.Method, res.URL(), res.Status)
	DisplayJSON(res.Data)
}

// SessionExpired tells the user the session can no longer be refreshed and
// where to sign in again.
func SessionExpired(signInURL string) {
	fmt.Fprintln(os.Stderr, "Your session has expired.")
	if signInURL != "" {
		fmt.Fprintf(os.Stderr, "Sign in again at %s or run 'eduapi auth login'.\n", signInURL)
		return
	}
	fmt.Fprintln(os.Stderr, "Run 'eduapi auth login' to sign in again.")
}

// NewProgressBar creates a progress bar counting completed requests.
// `total` is the number of requests; `description` is shown next to the bar.
func NewProgressBar(total int, description string) *progressbar.ProgressBar {
	if description == "" {
		description = "Fetching..."
	}
	return progressbar.NewOptions(
		total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr), // keep stdout for response data
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
}
