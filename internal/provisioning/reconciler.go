package provisioning

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/cfn"
)

// Reconciler provisions one kind of external resource from custom resource
// properties. Create and Update return the data reported to CloudFormation.
type Reconciler interface {
	Create(ctx context.Context, props Properties) (map[string]any, error)
	Update(ctx context.Context, props Properties) (map[string]any, error)
	Delete(ctx context.Context, props Properties) error
}

// Dispatch routes a request type to the matching reconciler operation
func Dispatch(ctx context.Context, r Reconciler, requestType cfn.RequestType, props Properties) (map[string]any, error) {
	switch requestType {
	case cfn.RequestCreate:
		return r.Create(ctx, props)
	case cfn.RequestUpdate:
		return r.Update(ctx, props)
	case cfn.RequestDelete:
		return map[string]any{}, r.Delete(ctx, props)
	default:
		return nil, fmt.Errorf("unsupported request type: %q", requestType)
	}
}
