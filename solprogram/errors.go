package solprogram

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var (
	ErrAccountNotFound    = errors.New("base account not found")
	ErrInvalidAccountData = errors.New("unexpected account data")
	ErrUnexpectedOwner    = errors.New("base account owned by another program")
)

// ProgramErrors maps Anchor framework and system program codes to messages.
var ProgramErrors = map[int]string{
	0:    "AccountAlreadyInUse - The base account already exists",
	1:    "InsufficientFunds - Not enough SOL to create the account",
	100:  "InstructionMissing - 8 byte instruction identifier not provided",
	101:  "InstructionFallbackNotFound - Fallback functions are not supported",
	102:  "InstructionDidNotDeserialize - The program could not deserialize the given instruction",
	103:  "InstructionDidNotSerialize - The program could not serialize the given instruction",
	2000: "ConstraintMut - A mut constraint was violated",
	2002: "ConstraintSigner - A signer constraint was violated",
	2003: "ConstraintRaw - A raw constraint was violated",
	2004: "ConstraintOwner - An owner constraint was violated",
	2005: "ConstraintRentExempt - A rent exemption constraint was violated",
	3000: "AccountDiscriminatorAlreadySet - The account discriminator was already set on this account",
	3001: "AccountDiscriminatorNotFound - No 8 byte discriminator was found on the account",
	3002: "AccountDiscriminatorMismatch - 8 byte discriminator did not match what was expected",
	3003: "AccountDidNotDeserialize - Failed to deserialize the account",
	3004: "AccountDidNotSerialize - Failed to serialize the account",
	3005: "AccountNotEnoughKeys - Not enough account keys given to the instruction",
	3006: "AccountNotMutable - The given account is not mutable",
	3007: "AccountOwnedByWrongProgram - The given account is owned by a different program than expected",
	3010: "AccountNotSigner - The given account did not sign",
	3011: "AccountNotSystemOwned - The given account is not owned by the system program",
	3012: "AccountNotInitialized - The program expected this account to be already initialized",
}

var (
	codePatterns = []*regexp.Regexp{
		regexp.MustCompile(`"Custom":\s*(\d+)`),     // "Custom": 3012
		regexp.MustCompile(`"Custom":\s*"(\d+)"`),   // "Custom": "3012"
		regexp.MustCompile(`Custom:\s*(\d+)`),       // Custom: 3012
		regexp.MustCompile(`Error Number:\s*(\d+)`), // Error Number: 3012 (Anchor logs)
	}
	hexCodePattern  = regexp.MustCompile(`custom program error: 0x([0-9a-fA-F]+)`)
	logLinePatterns = []*regexp.Regexp{
		regexp.MustCompile(`Program log: ([^"\\\n]+?)(?:"|\\n|$)`),
		regexp.MustCompile(`Program log: ([^\n]+)`),
	}
)

// ExtractErrorCode tries to pull a custom program error code out of err.
func ExtractErrorCode(err error) *int {
	if err == nil {
		return nil
	}
	errStr := err.Error()

	// Format: "err": {"InstructionError": [0, {"Custom": 3012}]}
	if code, ok := codeFromJSON(errStr); ok {
		return &code
	}

	for _, re := range codePatterns {
		if m := re.FindStringSubmatch(errStr); len(m) > 1 {
			if code, err := strconv.Atoi(m[1]); err == nil {
				return &code
			}
		}
	}

	if m := hexCodePattern.FindStringSubmatch(errStr); len(m) > 1 {
		if code, err := strconv.ParseInt(m[1], 16, 64); err == nil {
			c := int(code)
			return &c
		}
	}
	return nil
}

func codeFromJSON(errStr string) (int, bool) {
	start := strings.Index(errStr, `"err":`)
	if start == -1 {
		return 0, false
	}
	rest := errStr[start+len(`"err":`):]
	open := strings.IndexByte(rest, '{')
	if open == -1 {
		return 0, false
	}
	rest = rest[open:]

	depth, end := 0, -1
	for i, ch := range rest {
		if ch == '{' {
			depth++
		} else if ch == '}' {
			depth--
			if depth == 0 {
				end = i + 1
				break
			}
		}
	}
	if end == -1 {
		return 0, false
	}

	var wrapper struct {
		InstructionError []json.RawMessage `json:"InstructionError"`
	}
	if err := json.Unmarshal([]byte(rest[:end]), &wrapper); err != nil || len(wrapper.InstructionError) < 2 {
		return 0, false
	}
	var custom struct {
		Custom json.Number `json:"Custom"`
	}
	if err := json.Unmarshal(wrapper.InstructionError[1], &custom); err != nil || custom.Custom == "" {
		return 0, false
	}
	code, err := strconv.Atoi(custom.Custom.String())
	return code, err == nil
}

// ParseProgramError turns err into a message fit for the UI.
func ParseProgramError(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrAccountNotFound):
		return "The GIF account has not been initialized yet"
	case errors.Is(err, ErrInvalidAccountData):
		return "The GIF account holds unexpected data"
	}

	errStr := err.Error()
	if strings.Contains(errStr, "BlockhashNotFound") ||
		strings.Contains(errStr, "Blockhash not found") {
		return "Transaction expired. The blockhash is no longer valid, please try again."
	}

	if code := ExtractErrorCode(err); code != nil {
		if msg, ok := ProgramErrors[*code]; ok {
			return msg
		}
		return fmt.Sprintf("Custom program error code: %d", *code)
	}

	if strings.Contains(errStr, "insufficient funds") ||
		strings.Contains(errStr, "Attempt to debit an account but found no record of a prior credit") {
		return "Insufficient SOL balance to pay for transaction"
	}
	if strings.Contains(errStr, "simulation failed") {
		return "Transaction simulation failed. Check program logs for details."
	}

	return truncate(errStr, maxErrorLen)
}

const maxErrorLen = 300

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	end := 0
	for i := range s {
		if i > n {
			break
		}
		end = i
	}
	return s[:end] + "..."
}

// ExtractLogMessages extracts "Program log:" lines from err.
func ExtractLogMessages(err error) []string {
	if err == nil {
		return nil
	}
	errStr := err.Error()
	logs := []string{}
	for _, re := range logLinePatterns {
		for _, m := range re.FindAllStringSubmatch(errStr, -1) {
			if len(m) < 2 {
				continue
			}
			line := strings.TrimSpace(m[1])
			if line != "" && !slices.Contains(logs, line) {
				logs = append(logs, line)
			}
		}
	}
	return logs
}
