package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/thesisreg/backend/internal/apperr"
	"github.com/thesisreg/backend/internal/config"
	constants "github.com/thesisreg/backend/internal/constants"
	"github.com/thesisreg/backend/internal/logger"
	"github.com/thesisreg/backend/internal/service"
	"github.com/thesisreg/backend/pkg/db"
	"github.com/thesisreg/backend/pkg/groups"
)

const (
	exitOK        = 0
	exitFailure   = 1
	exitUsage     = 2
	exitNotFound  = 3
	exitForbidden = 4
	exitConflict  = 5
	exitInvalid   = 6
)

var errUsage = errors.New("usage")

func main() {
	if len(os.Args) < 2 || os.Args[1] == "help" || os.Args[1] == "-h" || os.Args[1] == "--help" {
		printUsage(os.Stdout)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg := config.Load()
	logger.InitWithLevel(os.Stderr, logger.ParseLevel(cfg.LogLevel))
	if err := cfg.Validate(); err != nil {
		logger.LogError("Invalid configuration", err)
		os.Exit(exitFailure)
	}

	database, err := db.NewDB(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		logger.LogError("Failed to initialize database pool", err)
		os.Exit(exitFailure)
	}
	defer database.Close()

	svc, err := service.NewGroupService(groups.NewPgStore(database.Pool()))
	if err != nil {
		logger.LogError("Failed to create group service", err)
		os.Exit(exitFailure)
	}

	err = run(ctx, svc, os.Args[1:], os.Stdout)
	code := exitCode(err)
	if err != nil {
		if errors.Is(err, errUsage) {
			printUsage(os.Stderr)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	if code != exitOK {
		database.Close()
		os.Exit(code)
	}
}

// run executes one command and writes its JSON result to out.
func run(ctx context.Context, svc *service.GroupService, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	command, rest := args[0], args[1:]

	ids := func(n int) ([]uuid.UUID, error) {
		if len(rest) != n {
			return nil, fmt.Errorf("%w: %s expects %d arguments", errUsage, command, n)
		}
		parsed := make([]uuid.UUID, 0, n)
		for _, raw := range rest {
			id, err := uuid.Parse(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: %q is not a valid id", errUsage, raw)
			}
			parsed = append(parsed, id)
		}
		return parsed, nil
	}

	var result any
	switch command {
	case "is-member":
		in, err := ids(1)
		if err != nil {
			return err
		}
		member, err := svc.IsMemberOfAnyGroup(ctx, in[0])
		if err != nil {
			return err
		}
		result = map[string]bool{"is_member": member}
	case "create":
		if len(rest) != 2 {
			return fmt.Errorf("%w: create expects <name> <user-id>", errUsage)
		}
		userID, err := uuid.Parse(rest[1])
		if err != nil {
			return fmt.Errorf("%w: %q is not a valid id", errUsage, rest[1])
		}
		if result, err = svc.CreateGroup(ctx, rest[0], userID); err != nil {
			return err
		}
	case "add-member":
		in, err := ids(3)
		if err != nil {
			return err
		}
		if result, err = svc.AddMember(ctx, in[0], in[1], in[2]); err != nil {
			return err
		}
	case "remove-member":
		in, err := ids(3)
		if err != nil {
			return err
		}
		if err := svc.RemoveMember(ctx, in[0], in[1], in[2]); err != nil {
			return err
		}
		result = map[string]string{"message": "member removed"}
	case "members":
		in, err := ids(1)
		if err != nil {
			return err
		}
		if result, err = svc.GetMembers(ctx, in[0]); err != nil {
			return err
		}
	case "transfer-leader":
		in, err := ids(3)
		if err != nil {
			return err
		}
		if err := svc.TransferLeader(ctx, in[0], in[1], in[2]); err != nil {
			return err
		}
		result = map[string]string{"message": "leadership transferred"}
	case "my-groups":
		in, err := ids(1)
		if err != nil {
			return err
		}
		if result, err = svc.GetAllGroupsForUser(ctx, in[0]); err != nil {
			return err
		}
	case "rename":
		if len(rest) != 3 {
			return fmt.Errorf("%w: rename expects <group-id> <name> <user-id>", errUsage)
		}
		groupID, err := uuid.Parse(rest[0])
		if err != nil {
			return fmt.Errorf("%w: %q is not a valid id", errUsage, rest[0])
		}
		userID, err := uuid.Parse(rest[2])
		if err != nil {
			return fmt.Errorf("%w: %q is not a valid id", errUsage, rest[2])
		}
		if result, err = svc.UpdateGroupName(ctx, groupID, rest[1], userID); err != nil {
			return err
		}
	case "details":
		in, err := ids(1)
		if err != nil {
			return err
		}
		if result, err = svc.GetDetailedMembersOfGroup(ctx, in[0]); err != nil {
			return err
		}
	case "show":
		in, err := ids(1)
		if err != nil {
			return err
		}
		if result, err = svc.GetGroupWithDetailedMembers(ctx, in[0]); err != nil {
			return err
		}
	case "delete":
		in, err := ids(2)
		if err != nil {
			return err
		}
		if err := svc.DeleteGroup(ctx, in[0], in[1]); err != nil {
			return err
		}
		result = map[string]string{"message": "group deleted"}
	case "register-thesis":
		in, err := ids(3)
		if err != nil {
			return err
		}
		if result, err = svc.RegisterThesisForGroup(ctx, in[0], in[1], in[2]); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errUsage):
		return exitUsage
	case apperr.IsNotFound(err):
		return exitNotFound
	case apperr.IsForbidden(err):
		return exitForbidden
	case apperr.IsConflict(err):
		return exitConflict
	case apperr.IsInvalid(err):
		return exitInvalid
	default:
		return exitFailure
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `Usage: groupctl <command> [arguments]

Commands:
  is-member <user-id>
  create <name> <user-id>
  add-member <group-id> <student-id> <leader-id>
  remove-member <group-id> <member-id> <leader-id>
  members <group-id>
  transfer-leader <group-id> <new-leader-id> <current-leader-id>
  my-groups <user-id>
  rename <group-id> <name> <user-id>
  details <group-id>
  show <group-id>
  delete <group-id> <user-id>
  register-thesis <group-id> <thesis-id> <user-id>

Exit codes: 3 not found, 4 forbidden, 5 conflict, 6 invalid input, 2 usage.

Environment Variables:
  %s        Database connection URL
  %s        Maximum pool connections
  %s           Log level (debug, info, warn, error)
`, constants.DATABASE_URL, constants.DB_MAX_CONNS, constants.LOG_LEVEL)
}
