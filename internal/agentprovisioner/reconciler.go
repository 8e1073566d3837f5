package agentprovisioner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent/types"

	"github.com/jrzesz33/bedrock_mac/internal/provisioning"
)

const (
	draftVersion             = "DRAFT"
	testAliasID              = "TSTALIASID"
	codeInterpreterGroup     = "CodeInterpreterAction"
	codeInterpreterSignature = "AMAZON.CodeInterpreter"
	listPageSize             = 100
)

// Reconciler provisions Bedrock Agents for Custom::BedrockAgent
type Reconciler struct {
	api      AgentAPI
	poller   *provisioning.Poller
	rollback bool
	logger   *slog.Logger
}

// NewReconciler creates a Reconciler. When rollback is set a failed create
// undoes the steps that completed.
func NewReconciler(api AgentAPI, poller *provisioning.Poller, rollback bool, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		api:      api,
		poller:   poller,
		rollback: rollback,
		logger:   logger,
	}
}

func agentOptionalParams(props provisioning.Properties) map[string]any {
	return map[string]any{
		"agentCollaboration":          props.OptionalString("agentCollaboration"),
		"customerEncryptionKeyArn":    props.OptionalString("customerEncryptionKeyArn"),
		"description":                 props.OptionalString("description"),
		"guardrailConfiguration":      props.Object("guardrailConfiguration"),
		"idleSessionTTLInSeconds":     props.Int("idleSessionTTLInSeconds"),
		"instruction":                 props.OptionalString("instruction"),
		"memoryConfiguration":         props.Object("memoryConfiguration"),
		"orchestrationType":           props.OptionalString("orchestrationType"),
		"promptOverrideConfiguration": props.Object("promptOverrideConfiguration"),
	}
}

// Create provisions the agent with its collaborators, optional code
// interpreter and an alias. An agent that already exists is adopted and
// its first alias is returned.
func (r *Reconciler) Create(ctx context.Context, props provisioning.Properties) (map[string]any, error) {
	optional := agentOptionalParams(props)
	optional["agentResourceRoleArn"] = props.OptionalString("agentResourceRoleArn")
	optional["clientToken"] = props.OptionalString("clientToken")
	optional["foundationModel"] = props.OptionalString("foundationModel")
	optional["tags"] = props.StringMap("tags")

	params, err := provisioning.Merge(map[string]any{"agentName": props.OptionalString("agentName")}, optional)
	if err != nil {
		return nil, err
	}

	name := props.String("agentName")
	existingID, found, err := r.findAgent(ctx, name)
	if err != nil {
		return nil, err
	}
	if found {
		r.logger.InfoContext(ctx, "agent already exists",
			slog.String("agent_name", name),
			slog.String("agent_id", existingID),
		)
		return r.adoptAgent(ctx, existingID, name)
	}

	input := &bedrockagent.CreateAgentInput{}
	if err := params.Decode(input); err != nil {
		return nil, err
	}
	input.CustomOrchestration, err = customOrchestration(props)
	if err != nil {
		return nil, err
	}

	collaborators, err := parseCollaborators(props.List("associateCollaborators"))
	if err != nil {
		return nil, err
	}

	var (
		agentID string
		alias   *types.AgentAlias
	)

	steps := []provisioning.Step{
		{
			Name: "create-agent",
			Run: func(ctx context.Context) error {
				out, err := r.api.CreateAgent(ctx, input)
				if err != nil {
					return fmt.Errorf("failed to create agent %q: %w", name, err)
				}
				agentID = aws.ToString(out.Agent.AgentId)
				r.logger.InfoContext(ctx, "created agent",
					slog.String("agent_name", name),
					slog.String("agent_id", agentID),
				)
				return nil
			},
			Compensate: func(ctx context.Context) error {
				_, err := r.api.DeleteAgent(ctx, &bedrockagent.DeleteAgentInput{
					AgentId:                aws.String(agentID),
					SkipResourceInUseCheck: true,
				})
				return err
			},
		},
		{
			Name: "await-agent-created",
			Run:  func(ctx context.Context) error { return r.awaitAgent(ctx, agentID) },
		},
		{
			Name: "associate-collaborators",
			Run: func(ctx context.Context) error {
				for _, c := range collaborators {
					if err := r.associate(ctx, agentID, c); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			Name: "prepare-agent",
			Run:  func(ctx context.Context) error { return r.prepare(ctx, agentID) },
		},
	}

	if props.Truthy("codeInterpreterEnabled") {
		steps = append(steps, provisioning.Step{
			Name: "enable-code-interpreter",
			Run: func(ctx context.Context) error {
				if _, err := r.api.CreateAgentActionGroup(ctx, &bedrockagent.CreateAgentActionGroupInput{
					AgentId:                    aws.String(agentID),
					AgentVersion:               aws.String(draftVersion),
					ActionGroupName:            aws.String(codeInterpreterGroup),
					ParentActionGroupSignature: types.ActionGroupSignature(codeInterpreterSignature),
					ActionGroupState:           types.ActionGroupState("ENABLED"),
				}); err != nil {
					return fmt.Errorf("failed to add code interpreter action group: %w", err)
				}
				r.logger.InfoContext(ctx, "code interpreter action group added",
					slog.String("agent_id", agentID),
				)
				// the action group changes the draft, so it must be prepared again
				return r.prepare(ctx, agentID)
			},
		})
	}

	steps = append(steps, provisioning.Step{
		Name: "create-alias",
		Run: func(ctx context.Context) error {
			created, err := r.createAlias(ctx, agentID, name)
			if err != nil {
				return err
			}
			alias = created
			return nil
		},
	})

	seq := &provisioning.Sequence{
		Name:     "create agent " + name,
		Steps:    steps,
		Rollback: r.rollback,
		Logger:   r.logger,
	}
	if err := seq.Run(ctx); err != nil {
		return nil, err
	}

	return aliasData(agentID, alias), nil
}

// Update replaces the agent configuration. The agent id is taken from the
// agentId property or resolved from agentName.
func (r *Reconciler) Update(ctx context.Context, props provisioning.Properties) (map[string]any, error) {
	agentID := props.OptionalString("agentId")
	if agentID == nil {
		id, found, err := r.findAgent(ctx, props.String("agentName"))
		if err != nil {
			return nil, err
		}
		if found {
			agentID = id
		}
	}

	params, err := provisioning.Merge(
		map[string]any{
			"agentId":              agentID,
			"agentName":            props.OptionalString("agentName"),
			"agentResourceRoleArn": props.OptionalString("agentResourceRoleArn"),
			"foundationModel":      props.OptionalString("foundationModel"),
		},
		agentOptionalParams(props),
	)
	if err != nil {
		return nil, err
	}

	input := &bedrockagent.UpdateAgentInput{}
	if err := params.Decode(input); err != nil {
		return nil, err
	}
	input.CustomOrchestration, err = customOrchestration(props)
	if err != nil {
		return nil, err
	}

	out, err := r.api.UpdateAgent(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to update agent %s: %w", aws.ToString(input.AgentId), err)
	}

	id := aws.ToString(out.Agent.AgentId)
	r.logger.InfoContext(ctx, "updated agent",
		slog.String("agent_id", id),
		slog.String("status", string(out.Agent.AgentStatus)),
	)
	return map[string]any{"AgentId": id}, nil
}

// Delete removes the agent named in props after deleting its aliases. Alias
// failures are logged and ignored; an agent that no longer exists is a
// successful delete.
func (r *Reconciler) Delete(ctx context.Context, props provisioning.Properties) error {
	name := props.String("agentName")
	agentID, found, err := r.findAgent(ctx, name)
	if err != nil {
		return err
	}
	if !found {
		r.logger.InfoContext(ctx, "agent not found, nothing to delete",
			slog.String("agent_name", name),
		)
		return nil
	}

	r.deleteAliases(ctx, agentID)

	input := &bedrockagent.DeleteAgentInput{AgentId: aws.String(agentID)}
	if skip, ok := props.Bool("skipResourceInUseCheck").(bool); ok {
		input.SkipResourceInUseCheck = skip
	}

	if _, err := r.api.DeleteAgent(ctx, input); err != nil {
		if provisioning.IsNotFound(err) {
			r.logger.InfoContext(ctx, "agent already deleted",
				slog.String("agent_id", agentID),
			)
			return nil
		}
		return fmt.Errorf("failed to delete agent %s: %w", agentID, err)
	}

	status, err := r.poller.AwaitTerminal(ctx, "agent "+agentID, r.agentStatus(agentID),
		func(s string) bool { return s == string(types.AgentStatusDeleting) },
		true,
	)
	if err != nil {
		return err
	}
	if status != provisioning.StatusDeleted {
		return fmt.Errorf("agent %s ended in status %s after delete", agentID, status)
	}

	r.logger.InfoContext(ctx, "deleted agent",
		slog.String("agent_name", name),
		slog.String("agent_id", agentID),
	)
	return nil
}

func (r *Reconciler) adoptAgent(ctx context.Context, agentID, name string) (map[string]any, error) {
	summary, found, err := provisioning.FindFirst[types.AgentAliasSummary](ctx, r.aliasPages(agentID),
		func(a types.AgentAliasSummary) bool { return aws.ToString(a.AgentAliasId) != testAliasID },
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list aliases of agent %s: %w", agentID, err)
	}

	if !found {
		alias, err := r.createAlias(ctx, agentID, name)
		if err != nil {
			return nil, err
		}
		return aliasData(agentID, alias), nil
	}

	aliasID := aws.ToString(summary.AgentAliasId)
	out, err := r.api.GetAgentAlias(ctx, &bedrockagent.GetAgentAliasInput{
		AgentId:      aws.String(agentID),
		AgentAliasId: aws.String(aliasID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe alias %s of agent %s: %w", aliasID, agentID, err)
	}
	return aliasData(agentID, out.AgentAlias), nil
}

func (r *Reconciler) awaitAgent(ctx context.Context, agentID string) error {
	status, err := r.poller.AwaitTerminal(ctx, "agent "+agentID, r.agentStatus(agentID),
		func(s string) bool { return strings.HasSuffix(s, "ING") },
		true,
	)
	if err != nil {
		return err
	}

	r.logger.InfoContext(ctx, "agent reached terminal status",
		slog.String("agent_id", agentID),
		slog.String("status", status),
	)
	if status == string(types.AgentStatusFailed) || status == provisioning.StatusDeleted {
		return fmt.Errorf("agent %s ended in status %s", agentID, status)
	}
	return nil
}

func (r *Reconciler) agentStatus(agentID string) provisioning.StatusFunc {
	return func(ctx context.Context) (string, error) {
		out, err := r.api.GetAgent(ctx, &bedrockagent.GetAgentInput{AgentId: aws.String(agentID)})
		if err != nil {
			return "", err
		}
		return string(out.Agent.AgentStatus), nil
	}
}

func (r *Reconciler) associate(ctx context.Context, agentID string, c Collaborator) error {
	input := &bedrockagent.AssociateAgentCollaboratorInput{
		AgentId:                  aws.String(agentID),
		AgentVersion:             aws.String(draftVersion),
		AgentDescriptor:          &types.AgentDescriptor{AliasArn: aws.String(c.AliasArn)},
		CollaboratorName:         aws.String(c.Name),
		CollaborationInstruction: aws.String(c.Instruction),
	}
	if c.RelayConversationHistory != "" {
		input.RelayConversationHistory = types.RelayConversationHistory(c.RelayConversationHistory)
	}

	if _, err := r.api.AssociateAgentCollaborator(ctx, input); err != nil {
		return fmt.Errorf("failed to associate collaborator %q: %w", c.Name, err)
	}
	r.logger.InfoContext(ctx, "associated collaborator",
		slog.String("agent_id", agentID),
		slog.String("collaborator", c.Name),
	)
	return nil
}

func (r *Reconciler) prepare(ctx context.Context, agentID string) error {
	if _, err := r.api.PrepareAgent(ctx, &bedrockagent.PrepareAgentInput{AgentId: aws.String(agentID)}); err != nil {
		return fmt.Errorf("failed to prepare agent %s: %w", agentID, err)
	}
	r.logger.InfoContext(ctx, "preparing agent", slog.String("agent_id", agentID))
	return r.awaitAgent(ctx, agentID)
}

func (r *Reconciler) createAlias(ctx context.Context, agentID, name string) (*types.AgentAlias, error) {
	out, err := r.api.CreateAgentAlias(ctx, &bedrockagent.CreateAgentAliasInput{
		AgentId:        aws.String(agentID),
		AgentAliasName: aws.String(name),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create alias for agent %s: %w", agentID, err)
	}
	aliasID := aws.ToString(out.AgentAlias.AgentAliasId)
	r.logger.InfoContext(ctx, "created agent alias",
		slog.String("agent_id", agentID),
		slog.String("alias_id", aliasID),
	)

	var alias *types.AgentAlias
	status, err := r.poller.AwaitTerminal(ctx, "alias "+aliasID,
		func(ctx context.Context) (string, error) {
			got, err := r.api.GetAgentAlias(ctx, &bedrockagent.GetAgentAliasInput{
				AgentId:      aws.String(agentID),
				AgentAliasId: aws.String(aliasID),
			})
			if err != nil {
				return "", err
			}
			alias = got.AgentAlias
			return string(got.AgentAlias.AgentAliasStatus), nil
		},
		func(s string) bool { return strings.HasSuffix(s, "ING") },
		false,
	)
	if err != nil {
		return nil, err
	}
	if status != string(types.AgentAliasStatusPrepared) {
		return nil, fmt.Errorf("alias %s of agent %s ended in status %s", aliasID, agentID, status)
	}
	return alias, nil
}

func (r *Reconciler) deleteAliases(ctx context.Context, agentID string) {
	pages := r.aliasPages(agentID)
	for pages.HasMorePages() {
		aliases, err := pages.NextPage(ctx)
		if err != nil {
			r.logger.WarnContext(ctx, "failed to list agent aliases",
				slog.String("agent_id", agentID),
				slog.String("error", err.Error()),
			)
			return
		}
		for _, a := range aliases {
			if _, err := r.api.DeleteAgentAlias(ctx, &bedrockagent.DeleteAgentAliasInput{
				AgentId:      aws.String(agentID),
				AgentAliasId: a.AgentAliasId,
			}); err != nil {
				r.logger.InfoContext(ctx, "could not delete agent alias",
					slog.String("agent_id", agentID),
					slog.String("alias_id", aws.ToString(a.AgentAliasId)),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

func (r *Reconciler) findAgent(ctx context.Context, name string) (string, bool, error) {
	pages := provisioning.NewPages[types.AgentSummary](func(ctx context.Context, token *string) ([]types.AgentSummary, *string, error) {
		out, err := r.api.ListAgents(ctx, &bedrockagent.ListAgentsInput{
			MaxResults: aws.Int32(listPageSize),
			NextToken:  token,
		})
		if err != nil {
			return nil, nil, err
		}
		return out.AgentSummaries, out.NextToken, nil
	})
	return provisioning.FindByName[types.AgentSummary](ctx, pages, name,
		func(a types.AgentSummary) string { return aws.ToString(a.AgentName) },
		func(a types.AgentSummary) string { return aws.ToString(a.AgentId) },
	)
}

func (r *Reconciler) aliasPages(agentID string) *provisioning.Pages[types.AgentAliasSummary] {
	return provisioning.NewPages[types.AgentAliasSummary](func(ctx context.Context, token *string) ([]types.AgentAliasSummary, *string, error) {
		out, err := r.api.ListAgentAliases(ctx, &bedrockagent.ListAgentAliasesInput{
			AgentId:    aws.String(agentID),
			MaxResults: aws.Int32(listPageSize),
			NextToken:  token,
		})
		if err != nil {
			return nil, nil, err
		}
		return out.AgentAliasSummaries, out.NextToken, nil
	})
}

func aliasData(agentID string, alias *types.AgentAlias) map[string]any {
	return map[string]any{
		"AliasArn":     aws.ToString(alias.AgentAliasArn),
		"AgentId":      agentID,
		"AgentAliasId": aws.ToString(alias.AgentAliasId),
	}
}

// customOrchestration reads {"executor": {"lambda": "<arn>"}}
func customOrchestration(props provisioning.Properties) (*types.CustomOrchestration, error) {
	raw := props.Object("customOrchestration")
	if raw == nil {
		return nil, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("customOrchestration: expected an object, got %T", raw)
	}
	executor, _ := m["executor"].(map[string]any)
	lambdaArn, _ := executor["lambda"].(string)
	if lambdaArn == "" {
		return nil, fmt.Errorf("customOrchestration.executor.lambda is required")
	}
	return &types.CustomOrchestration{
		Executor: &types.OrchestrationExecutorMemberLambda{Value: lambdaArn},
	}, nil
}
