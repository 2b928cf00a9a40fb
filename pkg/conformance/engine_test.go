package conformance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tr181-conform/tr181-go/pkg/device"
	"github.com/tr181-conform/tr181-go/pkg/device/devicemock"
	"github.com/tr181-conform/tr181-go/pkg/model"
)

func leaf(path string, typ model.DataType, access model.Access, value any) model.Node {
	return model.Node{
		Path:   path,
		Name:   model.LeafName(path),
		Type:   typ,
		Access: access,
		Value:  value,
	}
}

func TestRunWithoutCapability(t *testing.T) {
	specNodes := []model.Node{
		leaf("Device.DeviceInfo.Manufacturer", model.DataTypeString, model.AccessReadOnly, nil),
		leaf("Device.DeviceInfo.UpTime", model.DataTypeUnsignedInt, model.AccessReadOnly, nil),
		leaf("Device.OnlyInSpec", model.DataTypeString, model.AccessReadOnly, nil),
	}
	deviceNodes := []model.Node{
		leaf("Device.DeviceInfo.Manufacturer", model.DataTypeString, model.AccessReadOnly, "Acme"),
		leaf("Device.DeviceInfo.UpTime", model.DataTypeInt, model.AccessReadWrite, 3600),
	}

	report := New().Run(context.Background(), specNodes, deviceNodes)

	assert.Empty(t, report.EventResults)
	assert.Empty(t, report.FunctionResults)
	require.Len(t, report.Validations, 2)

	byPath := map[string]*model.ValidationResult{}
	for _, v := range report.Validations {
		byPath[v.Path] = v.Result
	}

	assert.True(t, byPath["Device.DeviceInfo.Manufacturer"].Valid)

	uptime := byPath["Device.DeviceInfo.UpTime"]
	require.NotNil(t, uptime)
	assert.False(t, uptime.Valid, "declared type mismatch must be an error")
	assert.NotEmpty(t, uptime.Warnings, "access mismatch must be a warning")

	assert.Equal(t, 2, report.Summary.ChecksTotal)
	assert.Equal(t, 1, report.Summary.ChecksPassed)
	assert.Equal(t, 0.5, report.Summary.ComplianceScore)
}

func TestRunValueAgainstSpecRange(t *testing.T) {
	min, max := 1.0, 10.0
	specNode := leaf("Device.X", model.DataTypeInt, model.AccessReadOnly, nil)
	specNode.Range = &model.ValueRange{Min: &min, Max: &max}
	deviceNode := leaf("Device.X", model.DataTypeInt, model.AccessReadOnly, 42)

	report := New().Run(context.Background(), []model.Node{specNode}, []model.Node{deviceNode})
	require.Len(t, report.Validations, 1)
	result := report.Validations[0].Result
	assert.False(t, result.Valid, "device value outside spec range must fail")
}

func TestRunObjectChildren(t *testing.T) {
	specNode := model.Node{
		Path: "Device.WiFi.", Name: "WiFi", Type: model.DataTypeObject,
		Access: model.AccessReadOnly, IsObject: true,
		Children: []string{"Device.WiFi.Radio.1.", "Device.WiFi.SSID.1."},
	}
	deviceNode := model.Node{
		Path: "Device.WiFi.", Name: "WiFi", Type: model.DataTypeObject,
		Access: model.AccessReadOnly, IsObject: true,
		Children: []string{"Device.WiFi.Radio.1.", "Device.WiFi.X_Acme_Mesh."},
	}

	report := New().Run(context.Background(), []model.Node{specNode}, []model.Node{deviceNode})
	require.Len(t, report.Validations, 1)
	result := report.Validations[0].Result

	assert.False(t, result.Valid, "missing declared child is an error")
	found := false
	for _, w := range result.Warnings {
		if w == "device declares extra child Device.WiFi.X_Acme_Mesh." {
			found = true
		}
	}
	assert.True(t, found, "extra child must warn, got %v", result.Warnings)
}

func TestRunAgainstFetchedNodes(t *testing.T) {
	ctx := context.Background()
	seed := []model.Node{
		{Path: "Device.WiFi.", Name: "WiFi", Type: model.DataTypeObject, Access: model.AccessReadOnly},
		{Path: "Device.WiFi.Radio.1.", Name: "1", Type: model.DataTypeObject, Access: model.AccessReadOnly},
		{Path: "Device.WiFi.SSID.1.", Name: "1", Type: model.DataTypeObject, Access: model.AccessReadOnly},
	}
	mock := devicemock.New(seed)
	require.NoError(t, mock.Connect(ctx, device.Config{}))

	deviceNodes, err := device.FetchNodes(ctx, mock, "")
	require.NoError(t, err)

	specNodes := []model.Node{
		{
			Path: "Device.WiFi.", Name: "WiFi", Type: model.DataTypeObject,
			Access: model.AccessReadOnly, IsObject: true,
			Children: []string{"Device.WiFi.Radio.1.", "Device.WiFi.SSID.1."},
		},
		{
			Path: "Device.WiFi.Radio.1.", Name: "1", Type: model.DataTypeObject,
			Access: model.AccessReadOnly, IsObject: true,
		},
		{
			Path: "Device.WiFi.SSID.1.", Name: "1", Type: model.DataTypeObject,
			Access: model.AccessReadOnly, IsObject: true,
		},
	}

	report := New().Run(ctx, specNodes, deviceNodes)
	require.Len(t, report.Validations, 3)
	for _, v := range report.Validations {
		assert.True(t, v.Result.Valid,
			"%s must validate against a compliant fetched device, got %v",
			v.Path, v.Result.Errors)
	}
	assert.Equal(t, 1.0, report.Summary.ComplianceScore)
}

func TestRunWithCapability(t *testing.T) {
	deviceNodes := []model.Node{
		leaf("Device.DeviceInfo.Manufacturer", model.DataTypeString, model.AccessReadOnly, "Acme"),
	}
	specNode := leaf("Device.DeviceInfo.Manufacturer", model.DataTypeString, model.AccessReadOnly, nil)
	specNode.Events = []model.Event{{
		Name: "Boot", Path: "Device.Boot!",
		Parameters: []string{"Device.DeviceInfo.Manufacturer"},
	}}
	specNode.Functions = []model.Function{{
		Name: "Reboot", Path: "Device.Reboot()",
	}}

	mock := devicemock.New(deviceNodes)
	require.NoError(t, mock.Connect(context.Background(), device.Config{}))

	engine := New(WithCapability(mock))
	report := engine.Run(context.Background(), []model.Node{specNode}, deviceNodes)

	require.Len(t, report.EventResults, 1)
	require.Len(t, report.FunctionResults, 1)
	assert.Equal(t, model.StatusPassed, report.EventResults[0].Status)
	assert.Equal(t, model.StatusPassed, report.FunctionResults[0].Status)

	// 1 validation + 1 event + 1 function, all passing.
	assert.Equal(t, 3, report.Summary.ChecksTotal)
	assert.Equal(t, 1.0, report.Summary.ComplianceScore)
}

func TestComplianceScoreEmptyRun(t *testing.T) {
	report := New().Run(context.Background(), nil, nil)
	assert.Equal(t, 0, report.Summary.ChecksTotal)
	assert.Equal(t, 1.0, report.Summary.ComplianceScore, "no checks means fully compliant")
}
