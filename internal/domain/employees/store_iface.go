package employees

import "context"

type StoreAPI interface {
	Create(ctx context.Context, emp Employee, passwordHash string) (Employee, error)
	Get(ctx context.Context, id string) (Employee, error)
	List(ctx context.Context, role string) ([]Employee, error)
	// Update writes every field of emp; an empty passwordHash keeps the current one.
	Update(ctx context.Context, emp Employee, passwordHash string) (Employee, error)
	Delete(ctx context.Context, id string) error
	CredentialsByEmail(ctx context.Context, email string) (Credentials, error)
	MFASecret(ctx context.Context, id string) (secret string, enabled bool, err error)
	SetMFA(ctx context.Context, id, secret string, enabled bool) error
}
