package secret

import (
	"fmt"

	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp"
	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp/projects"
	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp/secretmanager"
	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp/serviceaccount"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi/config"
)

var (
	provider *gcp.Provider
	service  *projects.Service
)

// AddSecret stores a deploy-time value (Plaid client id/secret) and returns
// the secret id for a Cloud Run env reference.
func AddSecret(ctx *pulumi.Context,
	resourceName,
	secretID string,
	value pulumi.StringInput) (pulumi.StringOutput, error) {
	emptyString := pulumi.String("").ToStringOutput()
	s, err := secretmanager.NewSecret(ctx, resourceName, &secretmanager.SecretArgs{
		SecretId: pulumi.String(secretID),
		Replication: &secretmanager.SecretReplicationArgs{
			Auto: &secretmanager.SecretReplicationAutoArgs{},
		},
	},
		pulumi.Provider(provider),
		pulumi.DependsOn([]pulumi.Resource{service}),
	)
	if err != nil {
		return emptyString, err
	}

	_, err = secretmanager.NewSecretVersion(ctx, resourceName+"Version", &secretmanager.SecretVersionArgs{
		Secret:     s.ID(),
		SecretData: value,
	},
		pulumi.Provider(provider),
	)
	if err != nil {
		return emptyString, err
	}

	return s.SecretId, nil
}

// SetupSecretManager enables the API and grants the service account the role
// its credential store needs: admin when item access tokens are kept as
// per-item secrets, accessor otherwise.
func SetupSecretManager(ctx *pulumi.Context, prov *gcp.Provider, apiSA *serviceaccount.Account) (*projects.Service, error) {
	var err error
	service, err = enableSecretsManager(ctx, prov)
	if err != nil {
		return nil, err
	}

	_, err = addIAMRoleForProject(ctx, prov, apiSA, runtimeRole(ctx), service)
	if err != nil {
		return nil, err
	}

	provider = prov
	return service, nil
}

func runtimeRole(ctx *pulumi.Context) string {
	if config.New(ctx, "ledger").Get("credentialStore") == "secretmanager" {
		return "roles/secretmanager.admin"
	}
	return "roles/secretmanager.secretAccessor"
}

func enableSecretsManager(ctx *pulumi.Context, prov *gcp.Provider) (*projects.Service, error) {
	return projects.NewService(ctx, "secretManagerService", &projects.ServiceArgs{
		Service: pulumi.String("secretmanager.googleapis.com"),
	},
		pulumi.Provider(prov),
	)
}

func addIAMRoleForProject(ctx *pulumi.Context,
	prov *gcp.Provider,
	apiSA *serviceaccount.Account,
	role string,
	res ...pulumi.Resource) (*projects.IAMMember, error) {
	gcpCfg := config.New(ctx, "gcp")
	projectID := gcpCfg.Require("project")

	return projects.NewIAMMember(ctx, "secretManagerRuntime", &projects.IAMMemberArgs{
		Project: pulumi.String(projectID),
		Role:    pulumi.String(role),
		Member: apiSA.Email.ApplyT(func(email string) string {
			return fmt.Sprintf("serviceAccount:%s", email)
		}).(pulumi.StringOutput),
	},
		pulumi.Provider(prov),
		pulumi.DependsOn(res),
	)
}
