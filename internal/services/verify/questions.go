package verify

// question is one entry of the local challenge pool. No external question
// service is involved; the gate only needs to stop unattended spam clients,
// not humans.
type question struct {
	Text       string
	Correct    string
	Distractor [3]string
}

var questionPool = []question{
	{Text: "冰融化后会变成什么？", Correct: "水", Distractor: [3]string{"石头", "木头", "火"}},
	{Text: "正常人有几只眼睛？", Correct: "2", Distractor: [3]string{"1", "3", "4"}},
	{Text: "以下哪个属于水果？", Correct: "香蕉", Distractor: [3]string{"白菜", "猪肉", "大米"}},
	{Text: "1 加 2 等于几？", Correct: "3", Distractor: [3]string{"2", "4", "5"}},
	{Text: "5 减 2 等于几？", Correct: "3", Distractor: [3]string{"1", "2", "4"}},
	{Text: "2 乘以 3 等于几？", Correct: "6", Distractor: [3]string{"4", "5", "7"}},
	{Text: "10 加 5 等于几？", Correct: "15", Distractor: [3]string{"10", "12", "20"}},
	{Text: "8 减 4 等于几？", Correct: "4", Distractor: [3]string{"2", "3", "5"}},
	{Text: "在天上飞的交通工具是什么？", Correct: "飞机", Distractor: [3]string{"汽车", "轮船", "自行车"}},
	{Text: "星期一的后面是星期几？", Correct: "星期二", Distractor: [3]string{"星期日", "星期五", "星期三"}},
	{Text: "鱼通常生活在哪里？", Correct: "水里", Distractor: [3]string{"树上", "土里", "火里"}},
	{Text: "我们用什么器官来听声音？", Correct: "耳朵", Distractor: [3]string{"眼睛", "鼻子", "嘴巴"}},
	{Text: "晴朗的天空通常是什么颜色的？", Correct: "蓝色", Distractor: [3]string{"绿色", "红色", "紫色"}},
	{Text: "小狗发出的叫声通常是？", Correct: "汪汪", Distractor: [3]string{"喵喵", "咩咩", "呱呱"}},
}
