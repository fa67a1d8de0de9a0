package main

import (
	"context"
	"log"
	"os"

	echoapi "github.com/shulehq/shule/apps/api/echo"
	"github.com/shulehq/shule/core"
	"github.com/shulehq/shule/core/academic"
	"github.com/shulehq/shule/core/admission"
	"github.com/shulehq/shule/core/content"
	"github.com/shulehq/shule/core/identity"
	authsvc "github.com/shulehq/shule/services/auth"
	memcache "github.com/shulehq/shule/services/cache/memory"
	rediscache "github.com/shulehq/shule/services/cache/redis"
	emailsvc "github.com/shulehq/shule/services/email"
	sendgridmail "github.com/shulehq/shule/services/email/sendgrid"
	logsvc "github.com/shulehq/shule/services/logger"
	firedoc "github.com/shulehq/shule/storage/docstore/firestore"
	gcstore "github.com/shulehq/shule/storage/object/gcs"
)

func main() {
	ctx := context.Background()
	std := log.New(os.Stdout, core.Conf.AppName+" ", log.LstdFlags|log.Lshortfile)

	var logger core.Logger
	if core.Conf.Debug {
		logger = logsvc.NewStdLogger(std)
	} else {
		logger = logsvc.NewRollbarLogger(std, core.Conf)
	}

	// set up storage
	db, err := firedoc.Open(ctx, core.Conf)
	errAndDie(err)
	defer db.Close()

	files, err := gcstore.Open(ctx, core.Conf)
	errAndDie(err)
	defer files.Close()

	var cache core.Cache
	if core.Conf.Debug {
		cache = memcache.Open()
	} else {
		redis, err := rediscache.Open(ctx, core.Conf)
		errAndDie(err)
		defer redis.Close()
		cache = redis
	}

	// set up services
	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = sendgridmail.NewService(logger)
	}

	admissionSvc := admission.NewService(db, files, logger)
	academicSvc := academic.NewService(db, logger)
	identitySvc := identity.NewService(db, authsvc.NewHTTPProvisioner(core.Conf), logger)
	contentSvc := content.NewService(db, files, cache, logger)

	// start API server
	app := echoapi.NewServer(
		&echoapi.Options{
			Addr:         core.Conf.Server.Addr,
			AdmissionSvc: admissionSvc,
			AcademicSvc:  academicSvc,
			IdentitySvc:  identitySvc,
			ContentSvc:   contentSvc,
			EmailSvc:     mailSvc,
			Logger:       logger,
		},
	)
	app.Start()
}

func errAndDie(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
