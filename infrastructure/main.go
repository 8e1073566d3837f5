package main

import (
	"encoding/json"
	"fmt"
	"log"
	"runtime/debug"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/apigatewayv2"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/cloudformation"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/cloudwatch"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/dynamodb"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/iam"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/lambda"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/s3"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/sns"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi/config"
)

const lambdaAssumeRolePolicy = `{
	"Version": "2012-10-17",
	"Statement": [{
		"Effect": "Allow",
		"Principal": {"Service": "lambda.amazonaws.com"},
		"Action": "sts:AssumeRole"
	}]
}`

const logsStatement = `{
	"Effect": "Allow",
	"Action": [
		"logs:CreateLogGroup",
		"logs:CreateLogStream",
		"logs:PutLogEvents"
	],
	"Resource": "arn:aws:logs:*:*:*"
}`

// functionSpec describes one Go Lambda built into ../build/<name>.zip
type functionSpec struct {
	name       string
	statements pulumi.StringOutput
	env        pulumi.StringMap
	memory     int
	timeout    int
}

type deployment struct {
	ctx              *pulumi.Context
	stage            string
	logRetentionDays int
	enableXRay       bool
	tags             pulumi.StringMap
}

func (d *deployment) resourceName(name string) string {
	return fmt.Sprintf("bedrock-mac-%s-%s", name, d.stage)
}

// newFunction creates the role, policy, log group and function for fn
func (d *deployment) newFunction(fn functionSpec) (*lambda.Function, error) {
	name := d.resourceName(fn.name)

	role, err := iam.NewRole(d.ctx, name+"-role", &iam.RoleArgs{
		Name:             pulumi.String(name + "-role"),
		AssumeRolePolicy: pulumi.String(lambdaAssumeRolePolicy),
		Tags:             d.tags,
	})
	if err != nil {
		return nil, err
	}

	policy, err := iam.NewRolePolicy(d.ctx, name+"-policy", &iam.RolePolicyArgs{
		Role: role.Name,
		Policy: fn.statements.ApplyT(func(statements string) string {
			if statements != "" {
				statements += ","
			}
			return fmt.Sprintf(`{"Version": "2012-10-17", "Statement": [%s%s]}`, statements, logsStatement)
		}).(pulumi.StringOutput),
	})
	if err != nil {
		return nil, err
	}

	logGroup, err := cloudwatch.NewLogGroup(d.ctx, name+"-logs", &cloudwatch.LogGroupArgs{
		Name:            pulumi.String("/aws/lambda/" + name),
		RetentionInDays: pulumi.Int(d.logRetentionDays),
		Tags:            d.tags,
	})
	if err != nil {
		return nil, err
	}

	env := pulumi.StringMap{
		"STAGE": pulumi.String(d.stage),
	}
	for k, v := range fn.env {
		env[k] = v
	}

	return lambda.NewFunction(d.ctx, name, &lambda.FunctionArgs{
		Name:    pulumi.String(name),
		Runtime: pulumi.String("provided.al2023"),
		Role:    role.Arn,
		Handler: pulumi.String("bootstrap"),
		Code:    pulumi.NewFileArchive(fmt.Sprintf("../build/%s.zip", fn.name)),
		Environment: &lambda.FunctionEnvironmentArgs{
			Variables: env,
		},
		MemorySize: pulumi.Int(fn.memory),
		Timeout:    pulumi.Int(fn.timeout),
		TracingConfig: &lambda.FunctionTracingConfigArgs{
			Mode: pulumi.String(map[bool]string{true: "Active", false: "PassThrough"}[d.enableXRay]),
		},
		Tags: d.tags,
	}, pulumi.DependsOn([]pulumi.Resource{logGroup, policy}))
}

// allowBedrockInvoke lets Bedrock Agents call an action group function
func (d *deployment) allowBedrockInvoke(name string, fn *lambda.Function) error {
	_, err := lambda.NewPermission(d.ctx, d.resourceName(name+"-bedrock-permission"), &lambda.PermissionArgs{
		Action:    pulumi.String("lambda:InvokeFunction"),
		Function:  fn.Name,
		Principal: pulumi.String("bedrock.amazonaws.com"),
	})
	return err
}

func main() {
	pulumi.Run(func(ctx *pulumi.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("PANIC RECOVERED: %v", r)
				log.Printf("Stack trace:\n%s", debug.Stack())
				err = fmt.Errorf("panic occurred: %v", r)
			}
		}()

		log.Printf("Starting Pulumi infrastructure deployment...")
		cfg := config.New(ctx, "")

		stage := cfg.Get("stage")
		if stage == "" {
			stage = "dev"
			log.Printf("Using default stage: %s", stage)
		}

		logRetentionDays := cfg.GetInt("logRetentionDays")
		if logRetentionDays == 0 {
			logRetentionDays = 7
		}

		foundationModel := cfg.Get("foundationModel")
		if foundationModel == "" {
			foundationModel = "us.anthropic.claude-3-5-sonnet-20241022-v2:0"
		}

		// Resolver settings are optional; the resolver is only deployed
		// once the AppSync endpoint exists.
		graphqlEndpoint := cfg.Get("graphqlEndpoint")
		graphqlAPIKeySecretName := cfg.Get("graphqlApiKeySecretName")
		resolverAgentID := cfg.Get("resolverAgentId")
		resolverAgentAliasID := cfg.Get("resolverAgentAliasId")

		d := &deployment{
			ctx:              ctx,
			stage:            stage,
			logRetentionDays: logRetentionDays,
			enableXRay:       cfg.GetBool("enableXRay"),
			tags: pulumi.StringMap{
				"Project":     pulumi.String("bedrock-mac"),
				"Stage":       pulumi.String(stage),
				"ManagedBy":   pulumi.String("pulumi"),
				"Environment": pulumi.String(stage),
			},
		}

		log.Printf("Configuration loaded successfully: stage=%s, logRetentionDays=%d", stage, logRetentionDays)

		// ========================================
		// Data bucket for loan applications and extraction results
		// ========================================
		dataBucket, err := s3.NewBucket(ctx, d.resourceName("data"), &s3.BucketArgs{
			Bucket: pulumi.String(d.resourceName("data")),
			Tags:   d.tags,
		})
		if err != nil {
			return fmt.Errorf("failed to create data bucket: %w", err)
		}

		_, err = s3.NewBucketPublicAccessBlock(ctx, d.resourceName("data-pab"), &s3.BucketPublicAccessBlockArgs{
			Bucket:                dataBucket.ID(),
			BlockPublicAcls:       pulumi.Bool(true),
			BlockPublicPolicy:     pulumi.Bool(true),
			IgnorePublicAcls:      pulumi.Bool(true),
			RestrictPublicBuckets: pulumi.Bool(true),
		})
		if err != nil {
			return fmt.Errorf("failed to create bucket public access block: %w", err)
		}

		// ========================================
		// Provisioning journal and notifications
		// ========================================
		journalTable, err := dynamodb.NewTable(ctx, d.resourceName("provisioning"), &dynamodb.TableArgs{
			Name:        pulumi.String(d.resourceName("provisioning")),
			BillingMode: pulumi.String("PAY_PER_REQUEST"),
			HashKey:     pulumi.String("id"),
			Attributes: dynamodb.TableAttributeArray{
				&dynamodb.TableAttributeArgs{
					Name: pulumi.String("id"),
					Type: pulumi.String("S"),
				},
			},
			Tags: d.tags,
		})
		if err != nil {
			return err
		}

		provisioningTopic, err := sns.NewTopic(ctx, d.resourceName("provisioning"), &sns.TopicArgs{
			Name: pulumi.String(d.resourceName("provisioning")),
			Tags: d.tags,
		})
		if err != nil {
			return err
		}

		journalStatements := pulumi.All(journalTable.Arn, provisioningTopic.Arn).ApplyT(func(args []interface{}) string {
			return fmt.Sprintf(`{
				"Effect": "Allow",
				"Action": ["dynamodb:GetItem", "dynamodb:PutItem", "dynamodb:UpdateItem", "dynamodb:Scan"],
				"Resource": "%s"
			},
			{
				"Effect": "Allow",
				"Action": ["sns:Publish"],
				"Resource": "%s"
			}`, args[0], args[1])
		}).(pulumi.StringOutput)

		provisioningEnv := pulumi.StringMap{
			"PROVISIONING_TABLE_NAME": journalTable.Name,
			"PROVISIONING_TOPIC_ARN":  provisioningTopic.Arn,
		}

		// ========================================
		// Custom resource Lambdas
		// ========================================
		bdaLambda, err := d.newFunction(functionSpec{
			name: "bdaproject",
			statements: journalStatements.ApplyT(func(s string) string {
				return s + `,
			{
				"Effect": "Allow",
				"Action": ["bedrock:*DataAutomationProject*"],
				"Resource": "*"
			}`
			}).(pulumi.StringOutput),
			env:     provisioningEnv,
			memory:  256,
			timeout: 900,
		})
		if err != nil {
			return err
		}

		agentProvisionerLambda, err := d.newFunction(functionSpec{
			name: "agentprovisioner",
			statements: journalStatements.ApplyT(func(s string) string {
				return s + `,
			{
				"Effect": "Allow",
				"Action": ["bedrock:*Agent*", "iam:PassRole"],
				"Resource": "*"
			}`
			}).(pulumi.StringOutput),
			env:     provisioningEnv,
			memory:  256,
			timeout: 900,
		})
		if err != nil {
			return err
		}

		// ========================================
		// Action group Lambdas
		// ========================================
		invoiceLambda, err := d.newFunction(functionSpec{
			name:       "invoiceactions",
			statements: pulumi.String("").ToStringOutput(),
			memory:     128,
			timeout:    30,
		})
		if err != nil {
			return err
		}
		if err := d.allowBedrockInvoke("invoiceactions", invoiceLambda); err != nil {
			return err
		}

		loanLambda, err := d.newFunction(functionSpec{
			name: "loanactions",
			statements: dataBucket.Arn.ApplyT(func(arn string) string {
				return fmt.Sprintf(`{
				"Effect": "Allow",
				"Action": ["s3:GetObject", "s3:PutObject"],
				"Resource": "%s/*"
			}`, arn)
			}).(pulumi.StringOutput),
			env: pulumi.StringMap{
				"DATA_BUCKET": dataBucket.ID().ToStringOutput(),
			},
			memory:  128,
			timeout: 30,
		})
		if err != nil {
			return err
		}
		if err := d.allowBedrockInvoke("loanactions", loanLambda); err != nil {
			return err
		}

		// ========================================
		// AppSync resolver Lambda
		// ========================================
		var resolverLambda *lambda.Function
		if graphqlEndpoint != "" && resolverAgentID != "" && resolverAgentAliasID != "" {
			resolverLambda, err = d.newFunction(functionSpec{
				name: "resolver",
				statements: pulumi.String(`{
				"Effect": "Allow",
				"Action": ["bedrock:InvokeAgent"],
				"Resource": "*"
			},
			{
				"Effect": "Allow",
				"Action": ["secretsmanager:GetSecretValue"],
				"Resource": "*"
			}`).ToStringOutput(),
				env: pulumi.StringMap{
					"GRAPHQL_ENDPOINT":            pulumi.String(graphqlEndpoint),
					"GRAPHQL_API_KEY_SECRET_NAME": pulumi.String(graphqlAPIKeySecretName),
					"AGENT_ID":                    pulumi.String(resolverAgentID),
					"AGENT_ALIAS_ID":              pulumi.String(resolverAgentAliasID),
				},
				memory:  512,
				timeout: 900,
			})
			if err != nil {
				return err
			}
		} else {
			log.Printf("Skipping resolver: graphqlEndpoint, resolverAgentId and resolverAgentAliasId are required")
		}

		// ========================================
		// Web API
		// ========================================
		webapiEnv := pulumi.StringMap{
			"PROVISIONING_TABLE_NAME": journalTable.Name,
		}
		if graphqlEndpoint != "" {
			webapiEnv["GRAPHQL_ENDPOINT"] = pulumi.String(graphqlEndpoint)
		}
		webapiLambda, err := d.newFunction(functionSpec{
			name: "webapi",
			statements: journalTable.Arn.ApplyT(func(arn string) string {
				return fmt.Sprintf(`{
				"Effect": "Allow",
				"Action": ["dynamodb:GetItem", "dynamodb:Scan"],
				"Resource": "%s"
			}`, arn)
			}).(pulumi.StringOutput),
			env:     webapiEnv,
			memory:  128,
			timeout: 30,
		})
		if err != nil {
			return err
		}

		httpApi, err := apigatewayv2.NewApi(ctx, d.resourceName("api"), &apigatewayv2.ApiArgs{
			Name:         pulumi.String(d.resourceName("api")),
			ProtocolType: pulumi.String("HTTP"),
			Description:  pulumi.String("HTTP API for provisioning status and hello endpoints"),
			Tags:         d.tags,
		})
		if err != nil {
			return err
		}

		_, err = lambda.NewPermission(ctx, d.resourceName("webapi-apigw-permission"), &lambda.PermissionArgs{
			Action:    pulumi.String("lambda:InvokeFunction"),
			Function:  webapiLambda.Name,
			Principal: pulumi.String("apigateway.amazonaws.com"),
			SourceArn: httpApi.ExecutionArn.ApplyT(func(arn string) string {
				return fmt.Sprintf("%s/*/*", arn)
			}).(pulumi.StringOutput),
		})
		if err != nil {
			return err
		}

		integration, err := apigatewayv2.NewIntegration(ctx, d.resourceName("api-integration"), &apigatewayv2.IntegrationArgs{
			ApiId:                httpApi.ID(),
			IntegrationType:      pulumi.String("AWS_PROXY"),
			IntegrationUri:       webapiLambda.Arn,
			IntegrationMethod:    pulumi.String("POST"),
			PayloadFormatVersion: pulumi.String("2.0"),
		})
		if err != nil {
			return err
		}

		_, err = apigatewayv2.NewRoute(ctx, d.resourceName("api-route"), &apigatewayv2.RouteArgs{
			ApiId:    httpApi.ID(),
			RouteKey: pulumi.String("$default"),
			Target: integration.ID().ApplyT(func(id string) string {
				return fmt.Sprintf("integrations/%s", id)
			}).(pulumi.StringOutput),
		})
		if err != nil {
			return err
		}

		_, err = apigatewayv2.NewStage(ctx, d.resourceName("api-stage"), &apigatewayv2.StageArgs{
			ApiId:      httpApi.ID(),
			Name:       pulumi.String("$default"),
			AutoDeploy: pulumi.Bool(true),
			Tags:       d.tags,
		})
		if err != nil {
			return err
		}

		// ========================================
		// Bedrock resources as CloudFormation custom resources
		// ========================================
		agentRole, err := iam.NewRole(ctx, d.resourceName("agent-role"), &iam.RoleArgs{
			Name: pulumi.String(d.resourceName("agent-role")),
			AssumeRolePolicy: pulumi.String(`{
				"Version": "2012-10-17",
				"Statement": [{
					"Effect": "Allow",
					"Principal": {"Service": "bedrock.amazonaws.com"},
					"Action": "sts:AssumeRole"
				}]
			}`),
			Tags: d.tags,
		})
		if err != nil {
			return err
		}

		_, err = iam.NewRolePolicy(ctx, d.resourceName("agent-policy"), &iam.RolePolicyArgs{
			Role: agentRole.Name,
			Policy: pulumi.String(`{
				"Version": "2012-10-17",
				"Statement": [{
					"Effect": "Allow",
					"Action": ["bedrock:InvokeModel", "bedrock:InvokeModelWithResponseStream"],
					"Resource": "*"
				}]
			}`),
		})
		if err != nil {
			return err
		}

		templateBody := pulumi.All(bdaLambda.Arn, agentProvisionerLambda.Arn, agentRole.Arn).ApplyT(
			func(args []interface{}) (string, error) {
				return bedrockTemplate(stage, foundationModel, args[0].(string), args[1].(string), args[2].(string))
			}).(pulumi.StringOutput)

		bedrockStack, err := cloudformation.NewStack(ctx, d.resourceName("bedrock"), &cloudformation.StackArgs{
			Name:         pulumi.String(d.resourceName("bedrock")),
			TemplateBody: templateBody,
			Tags:         d.tags,
		})
		if err != nil {
			return err
		}

		// ========================================
		// Stack Outputs
		// ========================================
		ctx.Export("dataBucket", dataBucket.ID())
		ctx.Export("provisioningTableName", journalTable.Name)
		ctx.Export("provisioningTopicArn", provisioningTopic.Arn)
		ctx.Export("bdaProjectLambdaArn", bdaLambda.Arn)
		ctx.Export("agentProvisionerLambdaArn", agentProvisionerLambda.Arn)
		ctx.Export("invoiceActionsLambdaArn", invoiceLambda.Arn)
		ctx.Export("loanActionsLambdaArn", loanLambda.Arn)
		ctx.Export("webapiUrl", httpApi.ApiEndpoint)
		ctx.Export("bedrockStackOutputs", bedrockStack.Outputs)
		if resolverLambda != nil {
			ctx.Export("resolverLambdaArn", resolverLambda.Arn)
		}

		return nil
	})
}

// bedrockTemplate renders the CloudFormation template holding the Data
// Automation project and the loan processing agent.
func bedrockTemplate(stage, foundationModel, bdaLambdaArn, agentLambdaArn, agentRoleArn string) (string, error) {
	template := map[string]any{
		"AWSTemplateFormatVersion": "2010-09-09",
		"Resources": map[string]any{
			"DocumentProject": map[string]any{
				"Type": "Custom::DataAutomationProject",
				"Properties": map[string]any{
					"ServiceToken": bdaLambdaArn,
					"projectName":  "loan-documents-" + stage,
					"standardOutputConfiguration": map[string]any{
						"document": map[string]any{
							"extraction": map[string]any{
								"granularity": map[string]any{"types": []string{"DOCUMENT", "PAGE"}},
								"boundingBox": map[string]any{"state": "DISABLED"},
							},
							"outputFormat": map[string]any{
								"textFormat":           map[string]any{"types": []string{"MARKDOWN"}},
								"additionalFileFormat": map[string]any{"state": "DISABLED"},
							},
						},
					},
				},
			},
			"LoanAgent": map[string]any{
				"Type": "Custom::BedrockAgent",
				"Properties": map[string]any{
					"ServiceToken":            agentLambdaArn,
					"agentName":               "loan-processing-" + stage,
					"agentResourceRoleArn":    agentRoleArn,
					"foundationModel":         foundationModel,
					"instruction":             "You help loan officers verify applicant documents and record application details.",
					"idleSessionTTLInSeconds": "1800",
					"codeInterpreterEnabled":  "true",
				},
			},
		},
		"Outputs": map[string]any{
			"ProjectArn": map[string]any{"Value": map[string]any{"Fn::GetAtt": []string{"DocumentProject", "ProjectArn"}}},
			"AgentId":    map[string]any{"Value": map[string]any{"Fn::GetAtt": []string{"LoanAgent", "AgentId"}}},
			"AliasId":    map[string]any{"Value": map[string]any{"Fn::GetAtt": []string{"LoanAgent", "AgentAliasId"}}},
		},
	}

	b, err := json.Marshal(template)
	if err != nil {
		return "", fmt.Errorf("failed to render bedrock template: %w", err)
	}
	return string(b), nil
}
