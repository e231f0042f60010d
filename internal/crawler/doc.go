/*
Tài liệu kỹ thuật cho GitHub File Crawler

1. Tổng quan

Crawler tìm repository qua GitHub Search API (theo ngôn ngữ, từ khoá và khoảng
thời gian tạo), duyệt cây thư mục của từng repo qua contents API và lưu lại nội
dung các file có phần mở rộng được cấu hình, kèm thời điểm commit tương ứng.

2. Kiến trúc

- github_api: Caller gắn token, nhận diện rate limit, thử lại có giới hạn
- rotator: giữ danh sách token và xoay vòng khi bị rate limit
- crawler: PathFilter, Selector, Walker, BatchRunner và FileCrawler
- sink: parquet, mysql, sqlite, kafka (và mirror lên object store)

3. Chế độ chọn snapshot

- after: nội dung hiện tại của file và ngày của commit mới nhất
- before: commit mới nhất có ngày nhỏ hơn hẳn mốc cutoff; nội dung lấy từ
  contents API với ?ref=<sha>, giải mã base64. Revision không phải text thì bỏ
  qua và thử commit cũ hơn. Chỉ đọc một trang commit; không có commit nào thỏa
  thì không ghi gì và báo "too many commits".

4. Chunk

Danh sách repo được chia thành chunk_count đoạn liên tiếp (đoạn cuối nhận phần
dư). Mỗi chunk được duyệt xong rồi flush một lần; crash giữa chừng chỉ mất chunk
đang chạy. skip_existing bỏ qua các chunk sink đã có.

5. Rate limit

403/429 có tín hiệu rate limit: chờ rotate_delay, đổi token, gửi lại đúng
request đó. Khi cả vòng token đều bị chặn thì chờ tăng dần theo cấp số nhân và
tôn trọng X-RateLimit-Reset (tối đa max_wait). Số lần thử tối đa là
max_attempts; hết lần thử thì nhánh đó bị bỏ qua và ghi log.
*/

package crawler
