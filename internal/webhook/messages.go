package webhook

import "fmt"

// User-facing texts.
const (
	welcomeText       = "歡迎使用 LINE 文件處理系統！\n請上傳文件或圖片，我會協助您處理。"
	imageStartText    = "📸 開始下載圖片..."
	imageFailedText   = "❌ 圖片下載失敗\n請檢查圖片是否仍在 LINE 中可用"
	textEchoPrefix    = "收到您的訊息: "
	fileStartTemplate = "📥 開始下載檔案：%s"
)

func echoText(text string) string {
	return textEchoPrefix + text
}

func fileStartText(name string) string {
	return fmt.Sprintf(fileStartTemplate, name)
}

func fileDoneText(name string, size int64, path string) string {
	return fmt.Sprintf("✅ 檔案下載成功！\n📁 檔案名稱: %s\n💾 檔案大小: %d bytes\n📂 儲存位置: %s", name, size, path)
}

func fileFailedText(name string) string {
	return fmt.Sprintf("❌ 檔案下載失敗: %s\n請檢查檔案是否仍在 LINE 中可用", name)
}

func imageDoneText(name, path string) string {
	return fmt.Sprintf("✅ 圖片下載成功！\n📁 檔案名稱: %s\n📂 儲存位置: %s", name, path)
}
