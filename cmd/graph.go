package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/shouni/go-scene-kit/pkg/asset"
	"github.com/shouni/go-scene-kit/pkg/config"
	"github.com/shouni/go-scene-kit/pkg/domain"
	"github.com/shouni/go-scene-kit/pkg/graph"
	"github.com/shouni/go-scene-kit/pkg/region"
)

var graphOpts struct {
	chars  int
	format string
	output string
	seed   int64
}

// graphCmd は、エンジンに接続せずにワークフローグラフを確認するためのコマンドなのだ。
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "仮のアセット名でワークフローグラフを組み立てて出力するのだ。",
	Args:  cobra.NoArgs,
	RunE:  graphCommand,
}

func init() {
	f := graphCmd.Flags()
	f.IntVarP(&graphOpts.chars, "chars", "n", 2, "キャラクター数（1〜3）なのだ。")
	f.StringVarP(&graphOpts.format, "format", "f", "json", "出力形式 json|dot|svg なのだ。")
	f.StringVarP(&graphOpts.output, "output", "o", "", "出力ファイル（省略時は標準出力）なのだ。")
	f.Int64Var(&graphOpts.seed, "seed", 0, "グラフに埋め込むシード値なのだ。")
}

func graphCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}
	g, err := previewGraph(cfg, graphOpts.chars, graphOpts.seed)
	if err != nil {
		return err
	}

	var out []byte
	switch graphOpts.format {
	case "json":
		out, err = json.MarshalIndent(g, "", "  ")
	case "dot":
		out = []byte(graph.ToDOT(g))
	case "svg":
		out, err = graph.RenderSVG(cmd.Context(), graph.ToDOT(g))
	default:
		return fmt.Errorf("未対応の出力形式なのだ: %s", graphOpts.format)
	}
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if graphOpts.output != "" {
		f, err := os.Create(graphOpts.output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	_, err = w.Write(out)
	return err
}

// previewGraph は n 人分の仮キャラクターと仮アセット名でグラフを組み立てるのだ。
func previewGraph(cfg config.Config, n int, seed int64) (*graph.Graph, error) {
	if n < domain.MinCharacters || n > domain.MaxCharacters {
		return nil, fmt.Errorf("%w: %d", region.ErrInvalidCount, n)
	}
	req := domain.SceneRequest{
		PositivePrompt: "preview scene",
		Seed:           domain.Ptr(seed),
	}
	masks := make([]string, n)
	refs := make([]string, n)
	for i := range n {
		name := fmt.Sprintf("character%d", i+1)
		req.Characters = append(req.Characters, domain.Character{Name: name, ReferenceImagePath: name + ".png"})
		masks[i] = asset.MaskUploadName("preview", i, name)
		refs[i] = asset.ReferenceUploadName(fmt.Sprintf("%016d", i), name+".png")
	}
	return graph.Build(req, masks, refs, graph.NewParams(cfg).Apply(req))
}
