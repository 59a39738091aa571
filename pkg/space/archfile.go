package space

import (
	"fmt"
	"io"
	"os"

	"github.com/hatlab/hatctl/pkg/runconf"
)

// Arch files hold one chosen SubTransformer in the regular run-configuration
// format, the files an arch-path option points at.

func WriteArch(w io.Writer, a *Arch) error {
	doc := &runconf.Document{}
	doc.Set("encoder-embed-dim-subtransformer", runconf.IntValue(a.EncoderEmbedDim))
	doc.Set("decoder-embed-dim-subtransformer", runconf.IntValue(a.DecoderEmbedDim))
	doc.Set("encoder-layer-num-subtransformer", runconf.IntValue(a.EncoderLayerNum))
	doc.Set("decoder-layer-num-subtransformer", runconf.IntValue(a.DecoderLayerNum))
	doc.Set("encoder-ffn-embed-dim-all-subtransformer", runconf.IntListValue(a.EncoderFFNEmbedDim))
	doc.Set("decoder-ffn-embed-dim-all-subtransformer", runconf.IntListValue(a.DecoderFFNEmbedDim))
	doc.Set("encoder-self-attention-heads-all-subtransformer", runconf.IntListValue(a.EncoderSelfAttnHeads))
	doc.Set("decoder-self-attention-heads-all-subtransformer", runconf.IntListValue(a.DecoderSelfAttnHeads))
	doc.Set("decoder-ende-attention-heads-all-subtransformer", runconf.IntListValue(a.DecoderEndeHeads))
	doc.Set("decoder-arbitrary-ende-attn-all-subtransformer", runconf.IntListValue(a.DecoderArbitraryEndeAttn))
	return doc.Encode(w)
}

func WriteArchFile(path string, a *Arch) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create arch file: %w", err)
	}
	defer f.Close()

	return WriteArch(f, a)
}

func ReadArch(path string) (*Arch, error) {
	doc, err := runconf.ParseFile(path)
	if err != nil {
		return nil, err
	}

	cfg, issues := runconf.Decode(doc)
	if len(issues) > 0 {
		return nil, fmt.Errorf("%s: %s", path, issues[0])
	}

	a, ok := ArchFromConfig(cfg)
	if !ok {
		return nil, fmt.Errorf("%s sets no SubTransformer options", path)
	}
	return a, nil
}
