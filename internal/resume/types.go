package resume

import (
	"slices"

	"github.com/google/uuid"
)

// DefaultTitle 是新建简历的默认标题。
const DefaultTitle = "Untitled Resume"

// Resume 表示一份简历。ID 在创建时分配，之后不再改变；Template 同样不可变。
type Resume struct {
	ID           string       `json:"id"`
	Template     TemplateID   `json:"template"`
	Title        string       `json:"title"`
	PersonalInfo PersonalInfo `json:"personal_info"`
	// Summary 为富文本（HTML 片段）。
	Summary    string       `json:"summary"`
	Experience []Experience `json:"experience"`
	Education  []Education  `json:"education"`
	Skills     []string     `json:"skills"`
}

// PersonalInfo 描述简历抬头的联系方式。
type PersonalInfo struct {
	FullName string `json:"full_name"`
	JobTitle string `json:"job_title"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
	Website  string `json:"website,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
}

// Experience 表示一段工作经历，Description 为富文本。
type Experience struct {
	ID          string `json:"id"`
	Company     string `json:"company"`
	Role        string `json:"role"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Description string `json:"description"`
}

// Education 表示一段教育经历。
type Education struct {
	ID          string `json:"id"`
	Institution string `json:"institution"`
	Degree      string `json:"degree"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
}

// New 基于默认内容创建一份新简历，并分配全新的随机 ID。
func New(template TemplateID) Resume {
	r := DefaultContent()
	r.ID = uuid.NewString()
	r.Template = template
	r.Title = DefaultTitle
	return r
}

// Clone 返回深拷贝，保证草稿与集合中的条目互不影响。
func (r Resume) Clone() Resume {
	out := r
	out.Experience = slices.Clone(r.Experience)
	out.Education = slices.Clone(r.Education)
	out.Skills = slices.Clone(r.Skills)
	return out
}

// FindExperience 返回指定 ID 的工作经历下标，不存在时返回 -1。
func (r Resume) FindExperience(id string) int {
	return slices.IndexFunc(r.Experience, func(e Experience) bool { return e.ID == id })
}

// DefaultContent 返回新简历的初始内容（不含 ID / 模板 / 标题）。
func DefaultContent() Resume {
	return Resume{
		PersonalInfo: PersonalInfo{
			FullName: "Your Name",
			JobTitle: "Your Job Title",
			Email:    "hello@example.com",
			Phone:    "123-456-7890",
			Location: "City, Country",
		},
		Summary: "<p>A short summary of your professional background and goals.</p>",
		Experience: []Experience{
			{
				ID:          "exp-1",
				Company:     "Company Name",
				Role:        "Role",
				StartDate:   "2020",
				EndDate:     "Present",
				Description: "<ul><li>Describe an achievement.</li><li>Describe another one.</li></ul>",
			},
		},
		Education: []Education{
			{
				ID:          "edu-1",
				Institution: "University Name",
				Degree:      "Degree",
				StartDate:   "2014",
				EndDate:     "2018",
			},
		},
		Skills: []string{"Communication", "Teamwork"},
	}
}
