package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/groupmeal/internal/reconcile"
)

const (
	groupBefore = `{
  "1760893200000": {
    "restaurant": {"id": "rest-1", "foodList": {
      "F1": {"foodPrice": 40000, "foodName": "Cơm gà"},
      "F3": {"foodPrice": 45000, "foodName": "Bánh mì ốp la"}
    }},
    "memberOrders": {
      "M": {"status": "empty"},
      "N": {"status": "joined", "foodId": "F1"}
    }
  }
}`
	groupAfter = `{
  "1760893200000": {
    "restaurant": {"id": "rest-1", "foodList": {
      "F1": {"foodPrice": 40000, "foodName": "Cơm gà"},
      "F3": {"foodPrice": 45000, "foodName": "Bánh mì ốp la"}
    }},
    "memberOrders": {
      "M": {"status": "joined", "foodId": "F1"},
      "N": {"status": "joined", "foodId": "F3"}
    }
  }
}`
)

func writeDetails(t *testing.T, before, after string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "old.json")
	newPath := filepath.Join(dir, "new.json")
	require.NoError(t, os.WriteFile(oldPath, []byte(before), 0644))
	require.NoError(t, os.WriteFile(newPath, []byte(after), 0644))
	return oldPath, newPath
}

func runDiffCmd(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewDiffCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestDiffCommand_GroupDigest(t *testing.T) {
	oldPath, newPath := writeDetails(t, groupBefore, groupAfter)

	out, err := runDiffCmd(t, "text", oldPath, newPath, "--order-id", "order-1", "--title", "Team lunch")
	require.NoError(t, err)
	assert.Equal(t, "Order: Team lunch (order-1)\n"+
		"\n"+
		"Mon 20/10/2025\n"+
		"- M joined: Cơm gà\n"+
		"- N changed Cơm gà -> Bánh mì ốp la\n", out)
}

func TestDiffCommand_GroupJSON(t *testing.T) {
	oldPath, newPath := writeDetails(t, groupBefore, groupAfter)

	out, err := runDiffCmd(t, "json", oldPath, newPath)
	require.NoError(t, err)

	var resp struct {
		Status string              `json:"status"`
		Data   reconcile.ChangeSet `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Dates, 1)
	require.Len(t, resp.Data.Dates[0].Members, 2)
	assert.Equal(t, reconcile.KindAdd, resp.Data.Dates[0].Members[0].Kind)
	assert.Equal(t, reconcile.KindUpdate, resp.Data.Dates[0].Members[1].Kind)
	assert.Equal(t, "Bánh mì ốp la", resp.Data.Dates[0].Members[1].NewFoodName)
}

func TestDiffCommand_ChatView(t *testing.T) {
	oldPath, newPath := writeDetails(t, groupBefore, groupAfter)

	out, err := runDiffCmd(t, "text", oldPath, newPath, "--view", "chat", "--thread", "t-1", "--by", "booker", "--order-id", "order-1")
	require.NoError(t, err)

	var audit reconcile.ChatAudit
	require.NoError(t, json.Unmarshal([]byte(out), &audit))
	assert.Equal(t, reconcile.ByBooker, audit.By)
	assert.Equal(t, "t-1", audit.ThreadID)
	require.Len(t, audit.Changes, 2)
	assert.Equal(t, "Cơm gà", audit.Changes[1].OldFood)
	assert.Equal(t, "Bánh mì ốp la", audit.Changes[1].NewFood)
}

func TestDiffCommand_NormalOrder(t *testing.T) {
	before := `{"1760893200000": {"restaurant": {"id": "r"}, "lineItems": [{"id": "F1", "name": "Cơm gà", "quantity": 2}]}}`
	after := `{"1760893200000": {"restaurant": {"id": "r"}, "lineItems": [{"id": "F1", "name": "Cơm gà", "quantity": 5}, {"id": "F2", "name": "Phở", "quantity": 1}]}}`
	oldPath, newPath := writeDetails(t, before, after)

	out, err := runDiffCmd(t, "text", oldPath, newPath, "--type", "normal", "--order-id", "order-2", "--title", "Catering")
	require.NoError(t, err)
	assert.Contains(t, out, "- Added 1 x Phở\n")
	assert.Contains(t, out, "- Cơm gà: 2 -> 5\n")
}

func TestDiffCommand_NoChanges(t *testing.T) {
	oldPath, newPath := writeDetails(t, groupAfter, groupAfter)

	out, err := runDiffCmd(t, "text", oldPath, newPath)
	require.NoError(t, err)
	assert.Equal(t, "No changes.\n", out)
}

func TestDiffCommand_Errors(t *testing.T) {
	oldPath, newPath := writeDetails(t, groupBefore, `{"tomorrow": {}}`)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"bad type", []string{oldPath, oldPath, "--type", "banquet"}, "invalid type"},
		{"bad view", []string{oldPath, oldPath, "--view", "sms"}, "invalid view"},
		{"bad attribution", []string{oldPath, oldPath, "--by", "robot"}, "invalid --by"},
		{"missing file", []string{oldPath, "/nonexistent.json"}, "failed to read order detail"},
		{"bad date key", []string{oldPath, newPath}, "invalid order detail"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runDiffCmd(t, "text", tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
