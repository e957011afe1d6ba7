package prompt

import "fmt"

// educationSkills lists the supporting education skills the model may
// recommend alongside its interpretation.
const educationSkills = `
Dưới đây là các kỹ năng giáo dục hỗ trợ (Skills) bạn có thể gợi ý cho giáo viên/học sinh sau khi phân tích hiện vật:
1. moodle-external-api-development: Tạo bài kiểm tra/quán lý khóa học trên Moodle.
2. pptx-official: Tạo bài giảng PowerPoint tự động từ nội dung giải mã.
3. docx-official: Tạo đề thi, giáo án, phiếu bài tập Word.
4. game-development: Tạo trò chơi 2D/Web/Mobile về di sản này.
5. app-builder: Xây dựng ứng dụng full-stack quản lý di sản.
6. frontend-design: Thiết kế giao diện học tập đẹp mắt.
7. firebase: Lưu trữ dữ liệu học tập thời gian thực.
8. d3-visualization: Trực quan hóa dữ liệu thống kê di sản.
9. browser-extension-builder: Tiện ích trình duyệt hỗ trợ học tập.
10. ai-agents-architect: Chatbot trả lời câu hỏi chuyên sâu.
11. langgraph: Quy trình học tập đa bước phức tạp.
12. clerk-auth / nextjs-supabase-auth: Hệ thống đăng nhập cho lớp học.
14. algorithmic-art: Sáng tạo nghệ thuật thuật toán từ hoa văn di sản.
`

// PatternAnalysis is the fixed instructional context sent with every
// vision attempt: identify the pattern, decode its symbolism and
// history, and suggest education activities. Vietnamese, markdown out.
func PatternAnalysis() string {
	return fmt.Sprintf(`Bạn là một chuyên gia về gốm Chu Đậu và giáo dục di sản.
Hãy thực hiện các bước sau:
1. Nhận diện hoa văn trong hình ảnh này.
2. Giải mã chi tiết ý nghĩa biểu tượng, các điển tích lịch sử và thông điệp văn hóa.
3. Đề xuất ít nhất 3 hoạt động giáo dục sáng tạo sử dụng các Skills sau đây để giúp học sinh hiểu sâu hơn về hiện vật này:
%s
Trả về kết quả bằng tiếng Việt, định dạng Markdown đẹp mắt, chuyên nghiệp.`, educationSkills)
}

// AudioGuide wraps a decoded result for the text-to-speech narrator.
func AudioGuide(text string) string {
	return fmt.Sprintf("Hãy thuyết minh đoạn văn sau một cách truyền cảm, như một hướng dẫn viên bảo tàng chuyên nghiệp: %s", text)
}
