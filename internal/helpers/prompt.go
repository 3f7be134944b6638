package helpers

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/algorand/go-algorand-sdk/v2/mnemonic"
	"golang.org/x/term"
)

const mnemonicWords = 25

// StdinIsTerminal reports whether prompts can be shown.
func StdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// PromptMnemonic asks for the signer's account mnemonic without echoing it.
// An empty answer returns "" so the service can start without a signer.
func PromptMnemonic() (string, error) {
	fmt.Println()
	fmt.Println("=== Signer Setup ===")
	fmt.Println("No signer is configured. Paste the 25-word account mnemonic to sign")
	fmt.Println("mints and destroys, or press enter to run read-only.")
	fmt.Println()

	for {
		_, _ = fmt.Fprint(os.Stderr, "Mnemonic: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		_, _ = fmt.Fprintln(os.Stderr)
		if err != nil {
			ZeroBytes(raw)
			return "", fmt.Errorf("mnemonic input failed: %w", err)
		}

		words := NormalizeMnemonic(string(raw))
		ZeroBytes(raw)
		if words == "" {
			return "", nil
		}
		if err := ValidateMnemonic(words); err != nil {
			fmt.Println("❌", err)
			continue
		}
		return words, nil
	}
}

// ReadMnemonic reads one mnemonic line from r, for piped input.
func ReadMnemonic(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read mnemonic: %w", err)
	}
	words := NormalizeMnemonic(line)
	if words == "" {
		return "", nil
	}
	if err := ValidateMnemonic(words); err != nil {
		return "", err
	}
	return words, nil
}

// NormalizeMnemonic lowercases and collapses separators, accepting
// comma-separated lists as exported by some wallets.
func NormalizeMnemonic(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	return strings.Join(fields, " ")
}

func ValidateMnemonic(words string) error {
	if n := len(strings.Fields(words)); n != mnemonicWords {
		return fmt.Errorf("mnemonic must have %d words, got %d", mnemonicWords, n)
	}
	if _, err := mnemonic.ToPrivateKey(words); err != nil {
		return fmt.Errorf("invalid mnemonic: %w", err)
	}
	return nil
}

func PromptLineWithDefault(label, def string) string {
	if def != "" {
		fmt.Printf("%s [%s]: ", label, def)
	} else {
		fmt.Printf("%s: ", label)
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return def
	}

	line = strings.TrimSpace(line)
	if line == "" {
		return def
	}
	return line
}

func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
