package cliutil

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// StdinPrompter asks question on stdout and reads a yes/no answer from
// stdin, the same confirmation shape the teacher's cluster delete command
// uses. It satisfies pkg/catalog.Prompter.
func StdinPrompter(question string) (bool, error) {
	fmt.Printf("%s (yes/no): ", question)
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}
	input = strings.TrimSpace(strings.ToLower(input))
	return input == "yes" || input == "y", nil
}
