package app

// Command はバイナリの起動モード。
type Command string

const (
	// CommandServe はAPIサーバーを起動する。
	CommandServe Command = "serve"
	// CommandWorker はセッションクリーンアップワーカーを起動する。
	CommandWorker Command = "worker"
	// CommandMigrate はスキーママイグレーションを適用して終了する。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck は稼働中サーバーの死活確認を行って終了する。
	// distrolessイメージにはシェルがないため、HEALTHCHECKはこのサブコマンドを使う。
	CommandHealthcheck Command = "healthcheck"
)

// knownCommands はサブコマンド名からCommandへの対応表。
var knownCommands = map[string]Command{
	"serve":       CommandServe,
	"worker":      CommandWorker,
	"migrate":     CommandMigrate,
	"healthcheck": CommandHealthcheck,
}

// ParseCommand は先頭の引数をサブコマンドとして解釈する。
// 引数なし・未知のサブコマンドはいずれもCommandServeに解決される。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}
	if cmd, ok := knownCommands[args[0]]; ok {
		return cmd
	}
	return CommandServe
}
