package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aussiebroadwan/custodian/internal/access/domain"
)

// parseResource accepts a file name or the short department letter.
func parseResource(s string) domain.ResourceID {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "A":
		return domain.CustomerA
	case "B":
		return domain.CustomerB
	}
	return domain.ResourceID(strings.TrimSpace(s))
}

func viewResource(w io.Writer, path string, id domain.ResourceID) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(w, "%s does not exist.\n", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", id, err)
	}

	fmt.Fprintf(w, "\n--- %s ---\n", id)
	fmt.Fprintln(w, strings.TrimRight(string(data), "\n"))
	fmt.Fprintln(w, "--- End of file ---")
	return nil
}

func appendResource(path, text string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(text + "\n"); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
