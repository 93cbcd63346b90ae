package paramstore

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"
)

// fakeAPI records the last input and returns canned output.
type fakeAPI struct {
	getOut *ssm.GetParameterOutput
	getErr error
	lastIn *ssm.GetParameterInput
}

func (f *fakeAPI) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.lastIn = in
	return f.getOut, f.getErr
}

func strPtr(s string) *string { return &s }

func valueAPI(v string) *fakeAPI {
	return &fakeAPI{getOut: &ssm.GetParameterOutput{Parameter: &types.Parameter{
		Name: strPtr("p"), Value: strPtr(v), Type: types.ParameterTypeSecureString,
	}}}
}

func TestNew_NilAPI(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "must not be nil")
}

func TestGetParameter_RequestsDecryption(t *testing.T) {
	api := valueAPI("sk-or-plain")
	client, err := New(api)
	require.NoError(t, err)

	v, err := client.GetParameter(context.Background(), " /relay/key ")
	require.NoError(t, err)
	require.Equal(t, "sk-or-plain", v)
	require.Equal(t, "/relay/key", *api.lastIn.Name)
	require.True(t, *api.lastIn.WithDecryption)
}

func TestGetParameter_Errors(t *testing.T) {
	client, err := New(&fakeAPI{getErr: errors.New("boom")})
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "p")
	require.ErrorContains(t, err, "boom")

	client, err = New(&fakeAPI{getOut: &ssm.GetParameterOutput{Parameter: &types.Parameter{Name: strPtr("p")}}})
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "p")
	require.ErrorContains(t, err, "missing value")

	_, err = client.GetParameter(context.Background(), "  ")
	require.ErrorContains(t, err, "required")

	_, err = (&Client{}).GetParameter(context.Background(), "p")
	require.ErrorContains(t, err, "not initialized")
}

func TestGetToken(t *testing.T) {
	cases := []struct {
		name    string
		value   string
		want    string
		wantErr string
	}{
		{name: "bare key", value: " sk-or-bare \n", want: "sk-or-bare"},
		{name: "json wrapper", value: `{"token":"sk-or-json"}`, want: "sk-or-json"},
		{name: "json without token", value: `{"other":"value"}`, wantErr: "is empty"},
		{name: "broken json", value: `{"broken`, wantErr: "unmarshal"},
		{name: "blank", value: "   ", wantErr: "is empty"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, err := New(valueAPI(tc.value))
			require.NoError(t, err)
			got, err := client.GetToken(context.Background(), "/relay/key")
			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}
