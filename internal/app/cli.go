package app

import "github.com/spf13/cobra"

// RegisterFlags binds every flag in flagSpecs(cfg) onto cmd, so
// cmd/go1090/main.go only has to call this once instead of one
// XxxVar call per field.
func RegisterFlags(cmd *cobra.Command, cfg *Config) {
	for _, spec := range flagSpecs(cfg) {
		switch spec.kind {
		case kindString:
			cmd.Flags().StringVar(spec.strDst, spec.name, spec.strDefault, spec.usage)
		case kindInt:
			cmd.Flags().IntVar(spec.intDst, spec.name, spec.intDefault, spec.usage)
		case kindUint32:
			cmd.Flags().Uint32Var(spec.u32Dst, spec.name, spec.u32Default, spec.usage)
		case kindBool:
			cmd.Flags().BoolVar(spec.boolDst, spec.name, spec.boolDefault, spec.usage)
		case kindFloat:
			cmd.Flags().Float64Var(spec.f64Dst, spec.name, spec.f64Default, spec.usage)
		case kindStringSlice:
			cmd.Flags().StringArrayVar(spec.sliceDst, spec.name, nil, spec.usage)
		}
	}
}
