package navigation_test

import (
	"testing"

	"github.com/jrsteele09/studio-gateway/internal/utils"
	"github.com/jrsteele09/studio-gateway/navigation"
	"github.com/jrsteele09/studio-gateway/users"
	"github.com/stretchr/testify/require"
)

func TestEveryRoleHasNavigation(t *testing.T) {
	for _, role := range users.Roles {
		t.Run(string(role), func(t *testing.T) {
			items := navigation.For(utils.Ptr(role))
			require.NotEmpty(t, items)
			for _, item := range items {
				require.NotEmpty(t, item.Label)
				require.Regexp(t, `^/`, item.Path)
			}
		})
	}
}

func TestUnknownRoleGetsDefault(t *testing.T) {
	def := navigation.For(nil)
	require.NotEmpty(t, def)
	require.Equal(t, "/", def[0].Path)

	require.Equal(t, def, navigation.For(utils.Ptr(users.RoleType("GUEST"))))
}

func TestOwnerNavigation(t *testing.T) {
	items := navigation.For(utils.Ptr(users.RoleOwner))

	var labels []string
	for _, item := range items {
		labels = append(labels, item.Label)
	}
	require.Contains(t, labels, "Instructors")
	require.Contains(t, labels, "Attendance")
}

func TestForIsDeterministicAndCopied(t *testing.T) {
	role := utils.Ptr(users.RoleOwner)
	first := navigation.For(role)
	first[1].Children[0].Label = "changed"
	first[0].Label = "changed"

	second := navigation.For(role)
	require.NotEqual(t, "changed", second[0].Label)
	require.NotEqual(t, "changed", second[1].Children[0].Label)
}

func TestLoadValidation(t *testing.T) {
	tests := map[string]string{
		"missing default": `roles: {}`,
		"missing role": `
default: [{label: Home, path: /}]
roles:
  OWNER: [{label: Home, path: /}]
`,
		"relative path": `
default: [{label: Home, path: home}]
`,
		"not yaml": `default: [`,
	}
	for name, def := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := navigation.Load([]byte(def))
			require.Error(t, err)
		})
	}
}
