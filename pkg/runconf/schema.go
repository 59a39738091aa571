package runconf

import (
	"fmt"
	"reflect"
)

// RunConfig is the typed view of a run configuration, grouped the way the
// files group their options. Only options named by a document are
// overwritten; everything else keeps its default.
type RunConfig struct {
	Task         TaskConfig
	Dataset      DatasetConfig
	Optimization OptimizationConfig
	Checkpoint   CheckpointConfig
	Distributed  DistributedConfig
	Super        SuperSpaceConfig
	Sub          SubTransformerConfig
	Latency      LatencyConfig
	Ranking      RankingConfig

	// Present records which option names the document actually set.
	Present map[string]bool
	// UnknownKeys are options the schema does not know about.
	UnknownKeys []string
}

type TaskConfig struct {
	Task                    string `conf:"task"`
	Arch                    string `conf:"arch"`
	TrainSubtransformer     bool   `conf:"train-subtransformer"`
	ValidateSubtransformer  bool   `conf:"validate-subtransformer"`
	ProfileFlops            bool   `conf:"profile-flops"`
	ShareAllEmbeddings      bool   `conf:"share-all-embeddings"`
	UserDir                 string `conf:"user-dir"`
	DisableValidation       bool   `conf:"disable-validation"`
}

type DatasetConfig struct {
	Data         string `conf:"data"`
	TrainSubset  string `conf:"train-subset"`
	ValidSubset  string `conf:"valid-subset"`
	NumWorkers   int    `conf:"num-workers"`
	MaxTokens    int    `conf:"max-tokens"`
	MaxSentences int    `conf:"max-sentences"`
}

type OptimizationConfig struct {
	Optimizer       string    `conf:"optimizer"`
	AdamBetas       string    `conf:"adam-betas"`
	AdamEps         float64   `conf:"adam-eps"`
	ClipNorm        float64   `conf:"clip-norm"`
	WeightDecay     float64   `conf:"weight-decay"`
	LR              []float64 `conf:"lr"`
	MinLR           float64   `conf:"min-lr"`
	LRScheduler     string    `conf:"lr-scheduler"`
	WarmupInitLR    float64   `conf:"warmup-init-lr"`
	WarmupUpdates   int       `conf:"warmup-updates"`
	MaxLR           float64   `conf:"max-lr"`
	LRPeriodUpdates float64   `conf:"lr-period-updates"`
	LRShrink        float64   `conf:"lr-shrink"`
	MaxUpdate       int       `conf:"max-update"`
	MaxEpoch        int       `conf:"max-epoch"`
	UpdateFreq      []int     `conf:"update-freq"`
	Criterion       string    `conf:"criterion"`
	LabelSmoothing  float64   `conf:"label-smoothing"`
	Dropout         float64   `conf:"dropout"`
	AttnDropout     float64   `conf:"attention-dropout"`
	Seed            int       `conf:"seed"`
	FP16            bool      `conf:"fp16"`
}

type CheckpointConfig struct {
	SaveDir             string `conf:"save-dir"`
	SaveInterval        int    `conf:"save-interval"`
	SaveIntervalUpdates int    `conf:"save-interval-updates"`
	KeepLastEpochs      int    `conf:"keep-last-epochs"`
	NoEpochCheckpoints  bool   `conf:"no-epoch-checkpoints"`
	ValidateInterval    int    `conf:"validate-interval"`
	LogInterval         int    `conf:"log-interval"`
	LogFormat           string `conf:"log-format"`
	TensorboardLogdir   string `conf:"tensorboard-logdir"`
}

type DistributedConfig struct {
	WorldSize int  `conf:"distributed-world-size"`
	CPU       bool `conf:"cpu"`
}

// SuperSpaceConfig enumerates the discrete search-space choices spanned by
// the SuperTransformer.
type SuperSpaceConfig struct {
	QKVDim                         int   `conf:"qkv-dim"`
	EncoderEmbedChoice             []int `conf:"encoder-embed-choice"`
	DecoderEmbedChoice             []int `conf:"decoder-embed-choice"`
	EncoderFFNEmbedChoice          []int `conf:"encoder-ffn-embed-dim-choice"`
	DecoderFFNEmbedChoice          []int `conf:"decoder-ffn-embed-dim-choice"`
	EncoderLayerNumChoice          []int `conf:"encoder-layer-num-choice"`
	DecoderLayerNumChoice          []int `conf:"decoder-layer-num-choice"`
	EncoderSelfAttnHeadsChoice     []int `conf:"encoder-self-attention-heads-choice"`
	DecoderSelfAttnHeadsChoice     []int `conf:"decoder-self-attention-heads-choice"`
	DecoderEndeAttnHeadsChoice     []int `conf:"decoder-ende-attention-heads-choice"`
	DecoderArbitraryEndeAttnChoice []int `conf:"decoder-arbitrary-ende-attn-choice"`
	VocabOriginalScaling           bool  `conf:"vocab-original-scaling"`
}

// SubTransformerConfig pins one sampled architecture inside the space.
type SubTransformerConfig struct {
	EncoderEmbedDim          int   `conf:"encoder-embed-dim-subtransformer"`
	DecoderEmbedDim          int   `conf:"decoder-embed-dim-subtransformer"`
	EncoderLayerNum          int   `conf:"encoder-layer-num-subtransformer"`
	DecoderLayerNum          int   `conf:"decoder-layer-num-subtransformer"`
	EncoderFFNEmbedDims      []int `conf:"encoder-ffn-embed-dim-all-subtransformer"`
	DecoderFFNEmbedDims      []int `conf:"decoder-ffn-embed-dim-all-subtransformer"`
	EncoderSelfAttnHeads     []int `conf:"encoder-self-attention-heads-all-subtransformer"`
	DecoderSelfAttnHeads     []int `conf:"decoder-self-attention-heads-all-subtransformer"`
	DecoderEndeAttnHeads     []int `conf:"decoder-ende-attention-heads-all-subtransformer"`
	DecoderArbitraryEndeAttn []int `conf:"decoder-arbitrary-ende-attn-all-subtransformer"`
}

type LatencyConfig struct {
	LatCPU         bool   `conf:"latcpu"`
	LatGPU         bool   `conf:"latgpu"`
	LatIter        int    `conf:"latiter"`
	LatDatasetPath string `conf:"lat-dataset-path"`
	CoreNum        int    `conf:"core-num"`
}

type RankingConfig struct {
	RankListSize    int     `conf:"rank-list-size"`
	RankingPatience int     `conf:"ranking-patience"`
	CorrThreshold   float64 `conf:"corr-threshold"`
	ArchPath        string  `conf:"arch-path"`
}

// NewRunConfig returns a configuration populated with the trainer's
// defaults for options the files commonly leave out.
func NewRunConfig() *RunConfig {
	return &RunConfig{
		Task: TaskConfig{
			Task: "translation",
		},
		Dataset: DatasetConfig{
			TrainSubset: "train",
			ValidSubset: "valid",
			NumWorkers:  1,
		},
		Optimization: OptimizationConfig{
			Optimizer:  "adam",
			AdamBetas:  "(0.9, 0.98)",
			AdamEps:    1e-8,
			LRShrink:   0.1,
			UpdateFreq: []int{1},
			Seed:       1,
			Dropout:    0.1,
		},
		Checkpoint: CheckpointConfig{
			SaveInterval:     1,
			KeepLastEpochs:   -1,
			ValidateInterval: 1,
			LogInterval:      1000,
		},
		Distributed: DistributedConfig{
			WorldSize: 1,
		},
		Latency: LatencyConfig{
			LatIter: 300,
		},
		Present: make(map[string]bool),
	}
}

// Issue is a schema-level problem found while decoding a document. Decoding
// is tolerant: a bad value leaves the default in place and is reported.
type Issue struct {
	Key     string
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Key, i.Message)
}

// Decode maps a document onto a typed RunConfig using the `conf` field tags.
func Decode(doc *Document) (*RunConfig, []Issue) {
	cfg := NewRunConfig()
	fields := fieldMap(cfg)

	var issues []Issue
	for _, key := range doc.Keys() {
		field, ok := fields[key]
		if !ok {
			cfg.UnknownKeys = append(cfg.UnknownKeys, key)
			continue
		}
		if err := setField(field, doc.Get(key)); err != nil {
			issues = append(issues, Issue{Key: key, Message: err.Error()})
			continue
		}
		cfg.Present[key] = true
	}
	return cfg, issues
}

// fieldMap walks the configuration groups and indexes every `conf`-tagged
// field by option name.
func fieldMap(cfg *RunConfig) map[string]reflect.Value {
	fields := make(map[string]reflect.Value)

	root := reflect.ValueOf(cfg).Elem()
	for i := 0; i < root.NumField(); i++ {
		group := root.Field(i)
		if group.Kind() != reflect.Struct {
			continue
		}
		groupType := group.Type()
		for j := 0; j < group.NumField(); j++ {
			tag := groupType.Field(j).Tag.Get("conf")
			if tag == "" {
				continue
			}
			fields[tag] = group.Field(j)
		}
	}
	return fields
}

func setField(field reflect.Value, v Value) error {
	switch field.Interface().(type) {
	case int:
		n, err := v.Int()
		if err != nil {
			return err
		}
		field.SetInt(int64(n))
	case float64:
		f, err := v.Float()
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case bool:
		b, err := v.Bool()
		if err != nil {
			return err
		}
		field.SetBool(b)
	case string:
		field.SetString(v.Str())
	case []int:
		ns, err := v.Ints()
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(ns))
	case []float64:
		fs, err := v.Floats()
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(fs))
	default:
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
	return nil
}

// Has reports whether the document set the given option.
func (c *RunConfig) Has(key string) bool {
	return c.Present[key]
}

// HasSubTransformer reports whether any SubTransformer option was set.
func (c *RunConfig) HasSubTransformer() bool {
	for key := range c.Present {
		if subTransformerKeys[key] {
			return true
		}
	}
	return false
}

var subTransformerKeys = map[string]bool{
	"encoder-embed-dim-subtransformer":                true,
	"decoder-embed-dim-subtransformer":                true,
	"encoder-layer-num-subtransformer":                true,
	"decoder-layer-num-subtransformer":                true,
	"encoder-ffn-embed-dim-all-subtransformer":        true,
	"decoder-ffn-embed-dim-all-subtransformer":        true,
	"encoder-self-attention-heads-all-subtransformer": true,
	"decoder-self-attention-heads-all-subtransformer": true,
	"decoder-ende-attention-heads-all-subtransformer": true,
	"decoder-arbitrary-ende-attn-all-subtransformer":  true,
}
