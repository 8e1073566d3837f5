// Package app builds the handler graphs shared by the Lambda entry points
// and the local replay CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/jrzesz33/bedrock_mac/internal/actiongroup"
	"github.com/jrzesz33/bedrock_mac/internal/agentprovisioner"
	"github.com/jrzesz33/bedrock_mac/internal/agentruntime"
	"github.com/jrzesz33/bedrock_mac/internal/dataautomation"
	"github.com/jrzesz33/bedrock_mac/internal/graphql"
	"github.com/jrzesz33/bedrock_mac/internal/httpclient"
	"github.com/jrzesz33/bedrock_mac/internal/logging"
	"github.com/jrzesz33/bedrock_mac/internal/messaging"
	"github.com/jrzesz33/bedrock_mac/internal/models"
	"github.com/jrzesz33/bedrock_mac/internal/provisioning"
	"github.com/jrzesz33/bedrock_mac/internal/repository"
	"github.com/jrzesz33/bedrock_mac/internal/resolver"
	"github.com/jrzesz33/bedrock_mac/internal/secrets"
	"github.com/jrzesz33/bedrock_mac/internal/storage"
	"github.com/jrzesz33/bedrock_mac/pkg/catalog"
	appconfig "github.com/jrzesz33/bedrock_mac/pkg/config"
)

// Runtime carries the configuration and clients every function starts from
type Runtime struct {
	Config *appconfig.Config
	AWS    aws.Config
	Logger *slog.Logger
	HTTP   *httpclient.Client
}

// Load reads the application and AWS configuration
func Load(ctx context.Context, logger *slog.Logger) (*Runtime, error) {
	cfg, err := appconfig.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.AWSRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return New(cfg, awsCfg, logger), nil
}

// New assembles a Runtime from already loaded configuration
func New(cfg *appconfig.Config, awsCfg aws.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		Config: cfg,
		AWS:    awsCfg,
		Logger: logger,
		HTTP:   httpclient.NewClient(logger),
	}
}

// MustLoad sets up logging and loads the Runtime, panicking on failure.
// Lambda entry points use it so configuration errors prevent startup.
func MustLoad(function string) *Runtime {
	logger := logging.New()
	slog.SetDefault(logger)

	rt, err := Load(context.Background(), logger)
	if err != nil {
		logger.Error("failed to initialise function",
			slog.String("function", function),
			slog.String("error", err.Error()),
		)
		panic(fmt.Sprintf("failed to initialise %s: %v", function, err))
	}

	logger.Info(function+" lambda starting",
		slog.String("stage", rt.Config.Stage.String()),
		slog.String("region", rt.Config.AWSRegion),
	)
	return rt
}

// ProvisioningRepository returns the journal repository, or nil when no
// table is configured.
func (r *Runtime) ProvisioningRepository() *repository.DynamoDBProvisioningRepository {
	if r.Config.ProvisioningTableName == "" {
		return nil
	}
	return repository.NewDynamoDBProvisioningRepository(dynamodb.NewFromConfig(r.AWS), r.Config.ProvisioningTableName)
}

// ProvisioningHandler builds the custom resource handler for kind
func (r *Runtime) ProvisioningHandler(kind models.ResourceKind) (*provisioning.Handler, error) {
	poller := provisioning.NewPoller(r.Config.PollInterval, r.Config.PollMaxAttempts, r.Logger)

	var reconciler provisioning.Reconciler
	switch kind {
	case models.ResourceKindDataAutomationProject:
		reconciler = dataautomation.NewReconciler(dataautomation.NewClient(r.AWS, r.HTTP), poller, r.Logger)
	case models.ResourceKindAgent:
		reconciler = agentprovisioner.NewReconciler(bedrockagent.NewFromConfig(r.AWS), poller, r.Config.RollbackOnFailure, r.Logger)
	default:
		return nil, fmt.Errorf("unsupported resource kind: %s", kind)
	}

	var opts []provisioning.HandlerOption
	if repo := r.ProvisioningRepository(); repo != nil {
		opts = append(opts, provisioning.WithJournal(repo))
	} else {
		r.Logger.Warn("PROVISIONING_TABLE_NAME not configured, journal disabled")
	}
	if r.Config.ProvisioningTopicArn != "" {
		opts = append(opts, provisioning.WithNotifier(
			messaging.NewSNSClient(sns.NewFromConfig(r.AWS), r.Config.ProvisioningTopicArn, r.Logger)))
	}

	reporter := provisioning.NewResponseReporter(r.HTTP, r.Logger)
	return provisioning.NewHandler(kind, r.Config.Stage, reconciler, reporter, r.Logger, opts...), nil
}

// InvoiceActions builds the invoice action group handler
func (r *Runtime) InvoiceActions() (*actiongroup.InvoiceActions, error) {
	c, err := catalog.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return actiongroup.NewInvoiceActions(c, r.Logger), nil
}

// LoanActions builds the loan action group handler
func (r *Runtime) LoanActions() (*actiongroup.LoanActions, error) {
	if err := r.Config.ValidateLoanActions(); err != nil {
		return nil, err
	}
	store := storage.NewApplicationStore(s3.NewFromConfig(r.AWS), r.Config.DataBucket, r.Logger)
	return actiongroup.NewLoanActions(store, r.Logger), nil
}

// GraphQL returns a client for the configured AppSync endpoint
func (r *Runtime) GraphQL() *graphql.Client {
	return graphql.NewClient(r.Config.GraphQLEndpoint, r.HTTP, r.Logger)
}

// Resolver builds the AppSync agent resolver
func (r *Runtime) Resolver() (*resolver.Handler, error) {
	if err := r.Config.ValidateResolver(); err != nil {
		return nil, err
	}

	runtimeClient := agentruntime.NewRuntimeClient(r.AWS, r.Config.AgentReadTimeout)
	invoker := agentruntime.NewInvoker(runtimeClient, r.Config.AgentID, r.Config.AgentAliasID, r.Logger)

	var opts []resolver.Option
	if r.Config.GraphQLAPIKeySecretName != "" {
		opts = append(opts, resolver.WithAPIKeySecret(secrets.NewManager(r.AWS, r.Logger), r.Config.GraphQLAPIKeySecretName))
	}

	return resolver.NewHandler(invoker, r.GraphQL(), r.Logger, opts...), nil
}
