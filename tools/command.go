package tools

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/atharvparlikar/pollux/errors"
)

// dangerousPatterns are substrings that block a command outright, before the
// allowlist is even consulted.
var dangerousPatterns = []string{
	"rm -rf /",
	"rm -rf ~",
	"mkfs",
	"dd if=",
	":(){",
	"> /dev/sd",
	"chmod -R 777 /",
	"shutdown",
	"reboot",
}

// ExecuteCommandTool implements the tool for running OS commands.
type ExecuteCommandTool struct {
	allowedCommands []string
	timeoutSecs     int
}

func (t *ExecuteCommandTool) Name() string { return "execute_command" }
func (t *ExecuteCommandTool) Description() string {
	if len(t.allowedCommands) == 0 {
		return "Executes a shell command. No commands are currently allowed. Args: command (string)."
	}

	allowedList := "Allowed command wildcard patterns:\n"
	for _, cmd := range t.allowedCommands {
		allowedList += fmt.Sprintf("- %s\n", cmd)
	}

	return fmt.Sprintf("Executes a shell command. Args: command (string).\n%s", allowedList)
}

func (t *ExecuteCommandTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	command, ok := args["command"].(string)
	if !ok {
		return "", errors.New("missing or invalid 'command' argument")
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(command, pattern) {
			return "", errors.New("command '%s' is blocked: it matches the dangerous pattern '%s'", command, pattern)
		}
	}

	allowed, err := isCommandAllowed(command, t.allowedCommands)
	if err != nil {
		return "", err
	}
	if !allowed {
		return "", errors.New("command '%s' is not in the list of allowed commands", command)
	}

	timeout := time.Duration(t.timeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Basic shell-like execution
	parts := strings.Fields(command)
	cmd := exec.CommandContext(execCtx, parts[0], parts[1:]...)

	output, err := cmd.CombinedOutput()
	if execCtx.Err() == context.DeadlineExceeded {
		return "", errors.New("command '%s' timed out after %s. Output:\n%s", command, timeout, string(output))
	}
	if err != nil {
		return "", errors.Wrapf(err, "command execution failed. Output:\n%s", string(output))
	}

	return fmt.Sprintf("Command executed successfully. Output:\n%s", string(output)), nil
}
