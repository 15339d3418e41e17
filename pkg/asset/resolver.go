package asset

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/shouni/go-utils/urlpath"
)

const (
	// DefaultSceneFileName は生成シーン画像の共通のベースファイル名です。
	DefaultSceneFileName = "scene.png"
	// DefaultMaskFileName は mask コマンドの既定の出力ファイル名です。
	DefaultMaskFileName = "mask.png"
	// DefaultGraphFileName は投入したワークフローグラフを書き出す際のファイル名です。
	DefaultGraphFileName = "workflow.json"
)

// SceneFileRegex はシーン画像 (scene_1.png 等) に一致します
var SceneFileRegex = createIndexedRegex(DefaultSceneFileName)

// ResolveOutputPath は、ベースとなるディレクトリパスとファイル名から最終的な出力パスを生成します。
func ResolveOutputPath(baseDir, fileName string) (string, error) {
	return urlpath.ResolveOutputPath(baseDir, fileName)
}

// GenerateIndexedPath は、指定されたベースパスの拡張子の前に連番を挿入します。index は1以上です。
// 例: "out/scene.png", 1 -> "out/scene_1.png"
func GenerateIndexedPath(basePath string, index int) (string, error) {
	return urlpath.GenerateIndexedPath(basePath, index)
}

// ScenePaths は outputDir 配下に n 枚分のシーン画像パスを連番で生成します。
func ScenePaths(outputDir string, n int) ([]string, error) {
	basePath, err := ResolveOutputPath(outputDir, DefaultSceneFileName)
	if err != nil {
		return nil, fmt.Errorf("出力パスの解決に失敗しました: %w", err)
	}
	paths := make([]string, n)
	for i := range paths {
		p, err := GenerateIndexedPath(basePath, i+1)
		if err != nil {
			return nil, fmt.Errorf("シーン画像 %d の出力パス生成に失敗しました: %w", i+1, err)
		}
		paths[i] = p
	}
	return paths, nil
}

// MaskUploadName はマスク画像のアップロード名を返します。
// 同時に実行される別ジョブのマスクを上書きしないよう、ジョブごとのトークンを含めます。
func MaskUploadName(jobToken string, slot int, owner string) string {
	return fmt.Sprintf("scene_mask_%s_%d_%s.png", jobToken, slot, slug(owner))
}

// ReferenceUploadName は参照画像のアップロード名を内容ハッシュから生成します。
func ReferenceUploadName(contentHash, sourcePath string) string {
	ext := strings.ToLower(filepath.Ext(sourcePath))
	if ext == "" {
		ext = ".png"
	}
	if len(contentHash) > 16 {
		contentHash = contentHash[:16]
	}
	return "scene_ref_" + contentHash + ext
}

// slug はファイル名に使える英数字とハイフンだけの文字列に変換します。
func slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case r == '-' || r == '_' || unicode.IsSpace(r):
			b.WriteByte('-')
		}
	}
	if b.Len() == 0 {
		return "char"
	}
	return b.String()
}

// createIndexedRegex は、ファイル名に基づきインデックス付きファイル用の正規表現を生成します。
// 例: "scene.png" -> ^scene_\d+\.png$
func createIndexedRegex(fileName string) *regexp.Regexp {
	ext := filepath.Ext(fileName)
	baseName := strings.TrimSuffix(fileName, ext)
	pattern := fmt.Sprintf(`^%s_\d+%s$`, regexp.QuoteMeta(baseName), regexp.QuoteMeta(ext))
	return regexp.MustCompile(pattern)
}
