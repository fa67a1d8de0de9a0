package main

import (
	"context"
	"log"
	"os"

	"github.com/shulehq/shule/core"
	firedoc "github.com/shulehq/shule/storage/docstore/firestore"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	// set up DB
	db, err := firedoc.Open(context.Background(), core.Conf)
	errAndDie(err)
	defer db.Close()

	// start CLI
	cli := commandLine{db: db}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
