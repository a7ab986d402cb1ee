package latency

import (
	"encoding/json"
	"fmt"
	"os"
)

// TimingConfig holds the total execution time, in pipeline cycles, of the
// multi-cycle operations. Every other instruction completes in one cycle.
// Values follow the VR4300 user's manual.
type TimingConfig struct {
	// MultLatency covers MULT and MULTU. Default: 5 cycles.
	MultLatency uint64 `json:"mult_latency"`

	// DMultLatency covers DMULT and DMULTU. Default: 8 cycles.
	DMultLatency uint64 `json:"dmult_latency"`

	// DivLatency covers DIV and DIVU. Default: 37 cycles.
	DivLatency uint64 `json:"div_latency"`

	// DDivLatency covers DDIV and DDIVU. Default: 69 cycles.
	DDivLatency uint64 `json:"ddiv_latency"`

	// FloatAddLatency covers ADD.fmt and SUB.fmt. Default: 3 cycles.
	FloatAddLatency uint64 `json:"float_add_latency"`

	// FloatMulSingleLatency covers MUL.S. Default: 5 cycles.
	FloatMulSingleLatency uint64 `json:"float_mul_single_latency"`

	// FloatMulDoubleLatency covers MUL.D. Default: 8 cycles.
	FloatMulDoubleLatency uint64 `json:"float_mul_double_latency"`

	// FloatDivSingleLatency covers DIV.S and SQRT.S. Default: 29 cycles.
	FloatDivSingleLatency uint64 `json:"float_div_single_latency"`

	// FloatDivDoubleLatency covers DIV.D and SQRT.D. Default: 58 cycles.
	FloatDivDoubleLatency uint64 `json:"float_div_double_latency"`

	// FloatConvertLatency covers conversions between fixed and floating
	// point. Default: 5 cycles.
	FloatConvertLatency uint64 `json:"float_convert_latency"`

	// FloatConvertFloatLatency covers CVT.S.D. CVT.D.S takes one cycle.
	// Default: 2 cycles.
	FloatConvertFloatLatency uint64 `json:"float_convert_float_latency"`

	// CopTransferLatency covers moves between the integer unit and a
	// coprocessor (MFC0, MTC0, MFC1, MTC1, CFC1, CTC1 and the 64-bit
	// forms). Default: 2 cycles.
	CopTransferLatency uint64 `json:"cop_transfer_latency"`
}

// DefaultTimingConfig returns a TimingConfig with VR4300 default values.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		MultLatency:              5,
		DMultLatency:             8,
		DivLatency:               37,
		DDivLatency:              69,
		FloatAddLatency:          3,
		FloatMulSingleLatency:    5,
		FloatMulDoubleLatency:    8,
		FloatDivSingleLatency:    29,
		FloatDivDoubleLatency:    58,
		FloatConvertLatency:      5,
		FloatConvertFloatLatency: 2,
		CopTransferLatency:       2,
	}
}

// LoadConfig loads a TimingConfig from a JSON file. Fields missing from the
// file keep their default values.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON file.
func (c *TimingConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// Validate checks that all latency values are valid (> 0).
func (c *TimingConfig) Validate() error {
	fields := []struct {
		name  string
		value uint64
	}{
		{"mult_latency", c.MultLatency},
		{"dmult_latency", c.DMultLatency},
		{"div_latency", c.DivLatency},
		{"ddiv_latency", c.DDivLatency},
		{"float_add_latency", c.FloatAddLatency},
		{"float_mul_single_latency", c.FloatMulSingleLatency},
		{"float_mul_double_latency", c.FloatMulDoubleLatency},
		{"float_div_single_latency", c.FloatDivSingleLatency},
		{"float_div_double_latency", c.FloatDivDoubleLatency},
		{"float_convert_latency", c.FloatConvertLatency},
		{"float_convert_float_latency", c.FloatConvertFloatLatency},
		{"cop_transfer_latency", c.CopTransferLatency},
	}

	for _, f := range fields {
		if f.value == 0 {
			return fmt.Errorf("%s must be > 0", f.name)
		}
	}
	if c.MultLatency > c.DMultLatency {
		return fmt.Errorf("mult_latency must be <= dmult_latency")
	}
	if c.DivLatency > c.DDivLatency {
		return fmt.Errorf("div_latency must be <= ddiv_latency")
	}
	return nil
}

// Clone returns a deep copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := *c
	return &clone
}
