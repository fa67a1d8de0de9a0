package main

import (
	"errors"
	"flag"
	"fmt"

	echoapi "github.com/shulehq/shule/apps/api/echo"
	"github.com/shulehq/shule/core"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db core.Docstore
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  minttoken -subject ID -email EMAIL [-admin] - mint a signed JWT for API access")
	fmt.Println("  stats                                       - print document counts per collection")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	mintTokenCmd := flag.NewFlagSet("minttoken", flag.ExitOnError)
	mintTokenSubject := mintTokenCmd.String("subject", "", "The token subject; an identity ID.")
	mintTokenEmail := mintTokenCmd.String("email", "", "The caller's email address.")
	mintTokenAdmin := mintTokenCmd.Bool("admin", false, "Grant the admin claim.")

	switch args[1] {
	case "minttoken":
		if err := mintTokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *mintTokenSubject == "" || *mintTokenEmail == "" {
			mintTokenCmd.Usage()
			return errHelp
		}
		return cli.mintToken(*mintTokenSubject, *mintTokenEmail, *mintTokenAdmin)
	case "stats":
		return cli.stats()
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) mintToken(subject, email string, isAdmin bool) error {
	email = core.CleanString(email, true /* lower */)
	token, err := echoapi.GenerateToken(echoapi.GetCallerClaims(subject, email, isAdmin))
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
