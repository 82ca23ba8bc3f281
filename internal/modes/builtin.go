// SPDX-License-Identifier: AGPL-3.0-or-later
package modes

import "github.com/runq-org/runq/internal/types"

// builtins are the schemas shipped with the dispatcher. A mode file with
// the same name replaces the builtin wholesale.
func builtins() []*types.Schema {
	return []*types.Schema{
		{
			Mode: "eval",
			Options: []types.Option{
				{Key: "loader.batch_size", Type: types.TypeInt, Default: 32, Description: "Per-device training loader batch size"},
				{Key: "loader.eval_batch_size", Type: types.TypeInt, Default: 32, Description: "Per-device evaluation loader batch size"},
				{Key: "data", Type: types.TypeString, Default: "openwebtext", Description: "Dataset selector"},
				{Key: "model", Type: types.TypeString, Default: "small", Description: "Model size selector"},
				{Key: "algo", Type: types.TypeString, Default: "diffusion", Description: "Algorithm variant (diffusion|autoregressive)"},
				{Key: "seed", Type: types.TypeInt, Default: 1},
				{Key: "eval.checkpoint_path", Type: types.TypePath, Default: "", Description: "Checkpoint to evaluate"},
				{Key: "eval.disable_ema", Type: types.TypeBool, Default: false},
				{Key: "sampling.num_sample_batches", Type: types.TypeInt, Default: 1, Description: "Sample batches drawn during eval"},
			},
		},
	}
}
