package models

// DefaultFolderName is the folder created on first run.
const DefaultFolderName = "我的笔记"

// WelcomeNoteTitle is the title of the note created on first run.
const WelcomeNoteTitle = "欢迎使用 NoteMaster"

// WelcomeNoteContent is the body of the note created on first run.
const WelcomeNoteContent = `# 欢迎使用 NoteMaster

这是一款功能强大的笔记应用，支持 Markdown 语法编写。

## 主要功能

- **Markdown 编辑**：完整的 Markdown 支持
- **文件夹管理**：多层级文件夹整理
- **AI 助手**：智能辅助写作（每个笔记独立的AI记忆）
- **本地存储**：数据安全存储在本地

## 快捷键

- ` + "`Ctrl+S`" + `：保存
- ` + "`Ctrl+B`" + `：粗体
- ` + "`Ctrl+I`" + `：斜体
- ` + "`Ctrl+K`" + `：插入链接

开始您的笔记之旅吧！`

// DefaultNoteTitle is the title used when a note is created without one.
const DefaultNoteTitle = "新建笔记"
