package main

import (
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/GregMSThompson/envelope-ledger/infra/cloudrun"
	"github.com/GregMSThompson/envelope-ledger/infra/docker"
	"github.com/GregMSThompson/envelope-ledger/infra/firestore"
	"github.com/GregMSThompson/envelope-ledger/infra/identity"
	"github.com/GregMSThompson/envelope-ledger/infra/provider"
)

func main() {
	pulumi.Run(func(ctx *pulumi.Context) error {
		// set default provider with the correct project
		prov, err := provider.SetupDefaultProvider(ctx)
		if err != nil {
			return err
		}

		// enable identity service to allow using firebase
		ident, err := identity.SetupIdentity(ctx, prov)
		if err != nil {
			return err
		}

		// enable firestore, create the database and the ledger query indexes
		db, err := firestore.SetupFirestore(ctx, prov)
		if err != nil {
			return err
		}

		// create docker repo
		repo, err := docker.CreateCloudrunRepo(ctx, prov)
		if err != nil {
			return err
		}

		_, err = cloudrun.SetupCloudRun(ctx, prov, ident, db, repo)
		if err != nil {
			return err
		}

		return nil
	})
}
