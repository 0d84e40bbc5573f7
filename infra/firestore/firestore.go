package firestore

import (
	"fmt"

	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp"
	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp/firestore"
	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp/projects"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi/config"
)

// transactionIndexes back the oldest-first allocation query and the filtered
// transaction listings. Each ends with postedAt, createdAt ascending.
var transactionIndexes = map[string][]string{
	"oldestUnallocated":    {"fullyAllocated"},
	"byAccount":            {"accountId"},
	"byBank":               {"bankId"},
	"unallocatedByAccount": {"accountId", "fullyAllocated"},
	"unallocatedByBank":    {"bankId", "fullyAllocated"},
}

func SetupFirestore(ctx *pulumi.Context, prov *gcp.Provider) (*firestore.Database, error) {
	svc, err := enableFireStore(ctx, prov)
	if err != nil {
		return nil, err
	}

	db, err := createDatabase(ctx, prov, svc)
	if err != nil {
		return nil, err
	}

	if err := createIndexes(ctx, prov, db); err != nil {
		return nil, err
	}

	return db, nil
}

func enableFireStore(ctx *pulumi.Context, prov *gcp.Provider) (*projects.Service, error) {
	return projects.NewService(ctx, "firestore", &projects.ServiceArgs{
		Service: pulumi.String("firestore.googleapis.com"),
	},
		pulumi.Provider(prov),
	)
}

func createDatabase(ctx *pulumi.Context, prov *gcp.Provider, res ...pulumi.Resource) (*firestore.Database, error) {
	gcpCfg := config.New(ctx, "gcp")
	projectID := gcpCfg.Require("project")
	region := gcpCfg.Require("region")

	return firestore.NewDatabase(ctx, "firestoreDatabase", &firestore.DatabaseArgs{
		Project:    pulumi.String(projectID),
		Name:       pulumi.String("(default)"),
		LocationId: pulumi.String(region),
		Type:       pulumi.String("FIRESTORE_NATIVE"),
	},
		pulumi.Provider(prov),
		pulumi.DependsOn(res),
	)
}

func createIndexes(ctx *pulumi.Context, prov *gcp.Provider, db *firestore.Database) error {
	for name, prefix := range transactionIndexes {
		fields := firestore.IndexFieldArray{}
		for _, path := range append(prefix, "postedAt", "createdAt", "__name__") {
			fields = append(fields, &firestore.IndexFieldArgs{
				FieldPath: pulumi.String(path),
				Order:     pulumi.String("ASCENDING"),
			})
		}

		_, err := firestore.NewIndex(ctx, fmt.Sprintf("transactions-%s", name), &firestore.IndexArgs{
			Database:   db.Name,
			Collection: pulumi.String("transactions"),
			QueryScope: pulumi.String("COLLECTION"),
			Fields:     fields,
		},
			pulumi.Provider(prov),
			pulumi.DependsOn([]pulumi.Resource{db}),
		)
		if err != nil {
			return err
		}
	}
	return nil
}
