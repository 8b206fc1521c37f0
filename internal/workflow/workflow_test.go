package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "leadconnect/pkg/domain-errors"
)

func TestByWebhookPath(t *testing.T) {
	mem := NewMemoryStore()
	want := mem.Add("crm-signup", "crm/signup", 7)

	svc := New(mem)
	wf, err := svc.ByWebhookPath(context.Background(), "crm/signup")
	require.NoError(t, err)
	assert.Equal(t, want, *wf)
	assert.Equal(t, int64(7), wf.EventSchemaID)
}

func TestByWebhookPathUnknown(t *testing.T) {
	svc := New(NewMemoryStore())
	_, err := svc.ByWebhookPath(context.Background(), "nobody/home")
	assert.True(t, derrors.HasCode(err, derrors.CodeNotFound))
}

func TestByWebhookPathEmpty(t *testing.T) {
	svc := New(NewMemoryStore())
	_, err := svc.ByWebhookPath(context.Background(), "")
	assert.True(t, derrors.HasCode(err, derrors.CodeValidation))
}
